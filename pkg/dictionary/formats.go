package dictionary

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// FileFormat distinguishes the two ways a Dictionary's source can be laid
// out on disk.
type FileFormat int

const (
	FormatUnknown FileFormat = iota
	FormatText               // a single "code\ttext" file
	FormatShardDir           // a directory of dict_NNNN.txt shards
)

// DetectFileFormat inspects path and reports which loading strategy
// applies: a directory of shards, a single text file, or neither.
func DetectFileFormat(path string) (FileFormat, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("dictionary: stat %s: %w", path, err)
	}

	if info.IsDir() {
		matches, err := filepath.Glob(filepath.Join(path, "dict_*.txt"))
		if err != nil {
			return FormatUnknown, err
		}
		if len(matches) == 0 {
			return FormatUnknown, fmt.Errorf("dictionary: %s contains no dict_*.txt shards", path)
		}
		return FormatShardDir, nil
	}

	if strings.EqualFold(filepath.Ext(path), ".txt") {
		if info.Size() == 0 {
			return FormatUnknown, fmt.Errorf("dictionary: %s is empty", path)
		}
		return FormatText, nil
	}

	return FormatUnknown, fmt.Errorf("dictionary: unrecognized file %s (expected .txt or a shard directory)", path)
}

// LoadPath loads a Dictionary from either a single text file or a
// directory of shards, dispatching on DetectFileFormat, using workers
// concurrent readers for the shard-directory case.
func LoadPath(cfg Config, path string, workers int) (*Dictionary, error) {
	format, err := DetectFileFormat(path)
	if err != nil {
		return nil, err
	}

	d := New(cfg)
	switch format {
	case FormatText:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("dictionary: opening %s: %w", path, err)
		}
		defer f.Close()
		if err := d.Load(f); err != nil {
			return nil, fmt.Errorf("dictionary: loading %s: %w", path, err)
		}
		log.Infof("dictionary: loaded %s, %d entries", path, d.Len())
	case FormatShardDir:
		if err := NewShardLoader(d, path, workers).LoadAll(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("dictionary: unsupported format for %s", path)
	}
	return d, nil
}
