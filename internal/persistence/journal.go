package persistence

import (
	"bufio"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

type fsyncStrategy int

const (
	fsyncAlways fsyncStrategy = iota + 1
	fsyncEverySec
	fsyncNo
)

// Journal is an append-only log of successful write commands
type Journal struct {
	file     *os.File
	writer   *bufio.Writer
	filename string
	strategy fsyncStrategy

	recordsChan chan []byte

	mu        sync.RWMutex // guards closed against concurrent Write
	closed    bool
	stopChan  chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	logger    *zap.Logger
}

// NewJournal opens (or creates) the journal file and starts the background writer
func NewJournal(filename string, strategyStr string, logger *zap.Logger) (*Journal, error) {
	strategy := parseStrategy(strategyStr)

	// open file in Append mode, Create if not exists, Read/Write
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}

	j := &Journal{
		file:        f,
		writer:      bufio.NewWriter(f), // default 4KB buffer
		filename:    filename,
		strategy:    strategy,
		recordsChan: make(chan []byte, 1024), // buffer for burst writes
		stopChan:    make(chan struct{}),
		logger:      logger,
	}

	// a crash may have left half a record at the end, appending after it would corrupt the next one
	if err := j.repairTail(); err != nil {
		f.Close() //nolint:errcheck
		return nil, err
	}

	// background disk writer
	j.wg.Add(1)
	go j.listen()

	return j, nil
}

// Write sends a serialized record to the background writer.
// Records written after Close are dropped and logged
func (j *Journal) Write(payload []byte) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		j.logger.Warn("journal closed, record dropped", zap.ByteString("record", payload))
		return
	}

	// if channel is full, this WILL block, providing backpressure
	j.recordsChan <- payload
}

func (j *Journal) listen() {
	defer j.wg.Done()

	var ticker = time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	if j.strategy != fsyncEverySec {
		ticker.Stop()
	}

	for {
		select {
		case p := <-j.recordsChan:
			j.append(p)

			if j.strategy == fsyncAlways {
				j.flush()
				j.sync()
			}

		case <-ticker.C:
			j.flush()
			j.sync()

		case <-j.stopChan:
			// drain whatever was queued before Close
			for {
				select {
				case p := <-j.recordsChan:
					j.append(p)
				default:
					j.flush()
					if j.strategy != fsyncNo {
						j.sync()
					}
					return
				}
			}
		}
	}
}

func (j *Journal) append(p []byte) {
	if _, err := j.writer.Write(p); err != nil {
		j.logger.Error("journal write error", zap.Error(err))
		return
	}
	// without fsync the OS decides when data reaches the disk
	if j.strategy == fsyncNo {
		j.flush()
	}
}

func (j *Journal) flush() {
	if err := j.writer.Flush(); err != nil {
		j.logger.Error("journal flush error", zap.Error(err))
	}
}

func (j *Journal) sync() {
	if err := j.file.Sync(); err != nil {
		j.logger.Error("journal fsync error", zap.Error(err))
	}
}

// Close flushes pending records and closes the file
func (j *Journal) Close() error {
	var err error
	j.closeOnce.Do(func() {
		j.mu.Lock()
		j.closed = true
		j.mu.Unlock()

		close(j.stopChan)

		j.wg.Wait() // wait for background routine to finish last flush
		err = j.file.Close()
	})
	return err
}

func parseStrategy(s string) fsyncStrategy {
	switch s {
	case "always":
		return fsyncAlways
	case "no":
		return fsyncNo
	default:
		return fsyncEverySec
	}
}
