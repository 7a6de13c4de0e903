package dictionary

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// ShardLoader discovers and parses dict_NNNN.txt shard files in a
// directory and merges them into one Dictionary before decoding starts.
// It is a load-time throughput concern only: once LoadAll returns, the
// Dictionary it built is never touched again, matching the "no online
// dictionary updates" constraint on the decoder itself.
type ShardLoader struct {
	dict       *Dictionary
	dirPath    string
	maxRetries int
	workers    int
}

// NewShardLoader creates a loader that will populate dict from shard files
// under dirPath, using up to workers concurrent readers.
func NewShardLoader(dict *Dictionary, dirPath string, workers int) *ShardLoader {
	if workers < 1 {
		workers = 1
	}
	return &ShardLoader{
		dict:       dict,
		dirPath:    dirPath,
		maxRetries: 3,
		workers:    workers,
	}
}

// availableShards lists dict_*.txt files sorted by shard index.
func (l *ShardLoader) availableShards() ([]string, error) {
	pattern := filepath.Join(l.dirPath, "dict_*.txt")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// LoadAll loads every shard concurrently, retrying transient read
// failures with a short backoff, and blocks until every shard has been
// merged into the Dictionary or has permanently failed.
func (l *ShardLoader) LoadAll() error {
	shards, err := l.availableShards()
	if err != nil {
		return fmt.Errorf("dictionary: listing shards in %s: %w", l.dirPath, err)
	}
	if len(shards) == 0 {
		return fmt.Errorf("dictionary: no dict_*.txt shards found in %s", l.dirPath)
	}

	jobs := make(chan string, len(shards))
	for _, s := range shards {
		jobs <- s
	}
	close(jobs)

	var mu sync.Mutex
	var failed []string
	var wg sync.WaitGroup

	for i := 0; i < l.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				if err := l.loadShardWithRetry(path); err != nil {
					log.Errorf("dictionary: giving up on shard %s: %v", path, err)
					mu.Lock()
					failed = append(failed, path)
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if len(failed) > 0 {
		return fmt.Errorf("dictionary: %d shard(s) failed to load: %v", len(failed), failed)
	}
	log.Infof("dictionary: loaded %d shard(s), %d entries", len(shards), l.dict.Len())
	return nil
}

func (l *ShardLoader) loadShardWithRetry(path string) error {
	var lastErr error
	for attempt := 0; attempt <= l.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * 50 * time.Millisecond
			log.Warnf("dictionary: retrying shard %s (attempt %d) after %v", path, attempt+1, backoff)
			time.Sleep(backoff)
		}
		f, err := os.Open(path)
		if err != nil {
			lastErr = err
			continue
		}
		err = l.dict.Load(f)
		f.Close()
		if err == nil {
			log.Debugf("dictionary: loaded shard %s", path)
			return nil
		}
		lastErr = err
	}
	return lastErr
}
