package archive

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

const (
	entryTypeInsight = "insight"
	entryTypeTrend   = "trend"
)

type entryHeader struct {
	EntryType string `json:"entryType"`
	Day       string `json:"day"`
	Metric    string `json:"metric"`
}

// upsert replaces the first entry matched by same with raw, or appends it.
func upsert(path string, raw json.RawMessage, same func(entryHeader) bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	entries, err := loadEntries(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	replaced := false
	for i, existing := range entries {
		header, err := detectHeader(existing)
		if err != nil {
			return err
		}
		if same(header) {
			entries[i] = raw
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, raw)
	}
	return writeEntries(path, entries)
}

func each(path, entryType string, fn func(json.RawMessage) error) error {
	entries, err := loadEntries(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, raw := range entries {
		header, err := detectHeader(raw)
		if err != nil {
			return err
		}
		if header.EntryType != entryType {
			continue
		}
		if err := fn(raw); err != nil {
			return err
		}
	}
	return nil
}

func writeEntries(path string, entries []json.RawMessage) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	// rename is atomic on one filesystem, so readers see the old or new file
	return os.Rename(tmp.Name(), path)
}

func loadEntries(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func detectHeader(raw json.RawMessage) (entryHeader, error) {
	var header entryHeader
	if err := json.Unmarshal(raw, &header); err != nil {
		return entryHeader{}, err
	}
	if header.EntryType == "" {
		header.EntryType = entryTypeInsight
	}
	return header, nil
}
