package schedule

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/aatumaykin/pollbot/internal/logger"
	"gopkg.in/yaml.v3"
)

// File reads and writes the schedule file: a YAML mapping from chat ID to
// the chat's ordered list of schedules.
type File struct {
	path   string
	logger *logger.Logger
}

// NewFile creates a File for the given path.
func NewFile(path string, log *logger.Logger) *File {
	return &File{path: path, logger: log}
}

// Path returns the file location.
func (f *File) Path() string {
	return f.path
}

// Read loads all chats from disk. A missing file yields an empty map and no
// error. Invalid entries are skipped. Schedule IDs are unique across the
// file: an entry without an ID, or repeating one seen earlier, gets a new one.
func (f *File) Read() (map[int64][]Schedule, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return map[int64][]Schedule{}, nil
	}
	if err != nil {
		f.logger.Error("failed to read schedule file", err,
			logger.Field{Key: "file", Value: f.path})
		return nil, fmt.Errorf("%w: read %s: %w", ErrPersistence, f.path, err)
	}

	var raw map[string][]Schedule
	if err := yaml.Unmarshal(data, &raw); err != nil {
		f.logger.Error("failed to parse schedule file", err,
			logger.Field{Key: "file", Value: f.path})
		return nil, fmt.Errorf("%w: parse %s: %w", ErrPersistence, f.path, err)
	}

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	chats := make(map[int64][]Schedule, len(raw))
	seen := make(map[string]bool)
	for _, key := range keys {
		chatID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			f.logger.Warn("skipping schedules with invalid chat id",
				logger.Field{Key: "file", Value: f.path},
				logger.Field{Key: "chat", Value: key})
			continue
		}
		for i, s := range raw[key] {
			s.ChatID = chatID
			if err := s.Validate(); err != nil {
				f.logger.Warn("skipping invalid schedule",
					logger.Field{Key: "file", Value: f.path},
					logger.Field{Key: "chat_id", Value: chatID},
					logger.Field{Key: "position", Value: i + 1},
					logger.Field{Key: "reason", Value: err.Error()})
				continue
			}
			switch {
			case s.ID == "":
				s.ID = newID()
			case seen[s.ID]:
				fresh := newID()
				f.logger.Warn("duplicate schedule id, assigning a new one",
					logger.Field{Key: "file", Value: f.path},
					logger.Field{Key: "chat_id", Value: chatID},
					logger.Field{Key: "position", Value: i + 1},
					logger.Field{Key: "duplicate_id", Value: s.ID},
					logger.Field{Key: "schedule_id", Value: fresh})
				s.ID = fresh
			}
			seen[s.ID] = true
			chats[chatID] = append(chats[chatID], s)
		}
	}
	return chats, nil
}

// Write rewrites the whole file atomically: data goes to a temporary file
// that is synced and renamed over the target.
func (f *File) Write(chats map[int64][]Schedule) error {
	raw := make(map[string][]Schedule, len(chats))
	for chatID, list := range chats {
		if len(list) == 0 {
			continue
		}
		raw[strconv.FormatInt(chatID, 10)] = list
	}

	node, err := sortedNode(raw)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrPersistence, err)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return fmt.Errorf("%w: encode: %w", ErrPersistence, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("%w: encode: %w", ErrPersistence, err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		f.logger.Error("failed to create schedule directory", err,
			logger.Field{Key: "dir", Value: filepath.Dir(f.path)})
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	tmpPath := f.path + ".tmp"
	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		f.logger.Error("failed to open temp schedule file", err,
			logger.Field{Key: "file", Value: tmpPath})
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if _, err := file.Write(buf.Bytes()); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		f.logger.Error("failed to write temp schedule file", err,
			logger.Field{Key: "file", Value: tmpPath})
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		f.logger.Error("failed to sync temp schedule file", err,
			logger.Field{Key: "file", Value: tmpPath})
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if err := os.Rename(tmpPath, f.path); err != nil {
		_ = os.Remove(tmpPath)
		f.logger.Error("failed to rename schedule file", err,
			logger.Field{Key: "from", Value: tmpPath},
			logger.Field{Key: "to", Value: f.path})
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// sortedNode builds a mapping node with chat keys in numeric order so the
// file diffs cleanly between writes.
func sortedNode(raw map[string][]Schedule) (*yaml.Node, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, _ := strconv.ParseInt(keys[i], 10, 64)
		b, _ := strconv.ParseInt(keys[j], 10, 64)
		return a < b
	})

	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range keys {
		var value yaml.Node
		if err := value.Encode(raw[k]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k, Style: yaml.DoubleQuotedStyle},
			&value)
	}
	return node, nil
}
