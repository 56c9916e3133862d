// Package chatlog is the durable ingestion log for chat-send events. It is an
// ordered, partitioned append-only topic: every entry is appended under a
// partition key (the room id as text), equal keys always land on the same
// partition, and a partition is consumed strictly in append order. Ordering
// across partitions is not guaranteed, which is exactly the contract the
// delivery pipeline needs: per-room order, cross-room concurrency.
package chatlog

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
)

const partitionBuffer = 1024

var (
	ErrClosed = errors.New("chatlog: log is closed")

	// ErrPartitionFull is returned when a partition's buffer is at capacity.
	// Append never blocks the producer, so backlog beyond the buffer is shed.
	ErrPartitionFull = errors.New("chatlog: partition buffer full")
)

// Handler processes one log entry. Failures are the handler's business: the
// entry is consumed once the handler returns, so a handler that wants
// redelivery semantics must retry internally before returning.
type Handler func(ctx context.Context, payload []byte)

// Log owns one buffered channel per partition. Each partition has exactly one
// writer path (Append, fanned in by key) and exactly one drainer goroutine
// (started by Consume), which is what makes the per-partition FIFO hold: no
// intermediary ever re-schedules entries between Append and the handler.
type Log struct {
	topic      string
	partitions []chan []byte
	logger     watermill.LoggerAdapter

	mu     sync.RWMutex
	closed bool
}

// New builds a log with the given partition count. The partition count is
// independent of the storage shard count; it only bounds how many rooms can
// be consumed concurrently.
func New(topic string, partitions int, logger watermill.LoggerAdapter) *Log {
	if partitions < 1 {
		partitions = 1
	}
	chans := make([]chan []byte, partitions)
	for i := range chans {
		chans[i] = make(chan []byte, partitionBuffer)
	}
	return &Log{
		topic:      topic,
		partitions: chans,
		logger:     logger,
	}
}

func (l *Log) Partitions() int {
	return len(l.partitions)
}

// PartitionFor maps a partition key to its partition. Deterministic: the same
// key always owns the same partition, which is what guarantees per-room
// ordering.
func (l *Log) PartitionFor(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(l.partitions)))
}

// Append writes payload to the partition owned by key. It never blocks: a
// partition whose buffer is full rejects the entry with ErrPartitionFull.
func (l *Log) Append(key string, payload []byte) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrClosed
	}

	p := l.PartitionFor(key)
	select {
	case l.partitions[p] <- payload:
		return nil
	default:
		l.logger.Error("Partition buffer full, entry rejected", ErrPartitionFull, watermill.LogFields{
			"topic":     l.topic,
			"partition": p,
		})
		return fmt.Errorf("%w: topic %s partition %d", ErrPartitionFull, l.topic, p)
	}
}

// Consume starts the consumer group. Each partition is drained by its own
// goroutine in strict append order; a semaphore caps how many partitions are
// inside the handler at once, so total parallelism is bounded by workers
// without ever reordering a partition.
func (l *Log) Consume(ctx context.Context, workers int, handler Handler) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrClosed
	}

	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)

	for p := range l.partitions {
		go func(partition int, entries <-chan []byte) {
			for {
				select {
				case <-ctx.Done():
					return
				case payload, ok := <-entries:
					if !ok {
						return
					}
					sem <- struct{}{}
					handler(ctx, payload)
					<-sem
				}
			}
		}(p, l.partitions[p])
	}

	return nil
}

// Close rejects further appends and lets the drainers finish the buffered
// backlog.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	for _, ch := range l.partitions {
		close(ch)
	}
	return nil
}
