package main

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"leadhound/internal/pipeline"
)

// partitionBuffer holds out-of-order completed messages for one partition.
// next is the lowest offset not yet committed; it seeds from the first
// message the buffer ever sees.
type partitionBuffer struct {
	next     int64
	seeded   bool
	byOffset map[int64]kafka.Message
}

func (b *partitionBuffer) add(msg kafka.Message) {
	if !b.seeded {
		b.next = msg.Offset
		b.seeded = true
	}
	b.byOffset[msg.Offset] = msg
}

// takeNext removes and returns the message at the next contiguous offset,
// if buffered.
func (b *partitionBuffer) takeNext() (kafka.Message, bool) {
	msg, ok := b.byOffset[b.next]
	if ok {
		delete(b.byOffset, b.next)
	}
	return msg, ok
}

// commitCoordinator serializes offset commits per partition. Jobs finish out
// of order, so completed messages are buffered until every lower offset on
// the same partition has committed; committing offset N before N-1 would drop
// N-1 on a consumer restart. Scrape and phone consumers each get their own
// coordinator so a slow board fetch never stalls phone-enrichment commits.
type commitCoordinator struct {
	reader   pipeline.MessageReader
	commitCh <-chan kafka.Message

	mu    sync.Mutex
	parts map[int]*partitionBuffer
}

func newCommitCoordinator(reader pipeline.MessageReader, commitCh <-chan kafka.Message) *commitCoordinator {
	return &commitCoordinator{
		reader:   reader,
		commitCh: commitCh,
		parts:    make(map[int]*partitionBuffer),
	}
}

// run consumes completed messages until ctx is cancelled or commitCh closes,
// then flushes whatever is still buffered. Calls wg.Done() on exit.
func (c *commitCoordinator) run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			c.flush(ctx)
			return
		case msg, ok := <-c.commitCh:
			if !ok {
				c.flush(ctx)
				return
			}
			c.buffer(msg)
			c.drain(ctx, msg.Partition)
		}
	}
}

func (c *commitCoordinator) buffer(msg kafka.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := c.parts[msg.Partition]
	if buf == nil {
		buf = &partitionBuffer{byOffset: make(map[int64]kafka.Message)}
		c.parts[msg.Partition] = buf
	}
	buf.add(msg)
	atomic.AddInt64(&workerCommitPendingTotal, 1)
}

// drain commits contiguous offsets for the partition until a gap or a commit
// failure. The lock is dropped around CommitMessages since it blocks on
// broker I/O. A failed commit puts the message back without advancing next,
// so a later drain retries it instead of skipping ahead.
func (c *commitCoordinator) drain(ctx context.Context, partition int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := c.parts[partition]
	if buf == nil {
		return
	}
	for {
		msg, ok := buf.takeNext()
		if !ok {
			return
		}
		atomic.AddInt64(&workerCommitPendingTotal, -1)

		c.mu.Unlock()
		start := time.Now()
		err := c.reader.CommitMessages(ctx, msg)
		observeCommitLatency(time.Since(start))
		c.mu.Lock()

		if err != nil {
			atomic.AddUint64(&workerCommitErrorsTotal, 1)
			log.Printf("commit error partition=%d offset=%d: %v", partition, msg.Offset, err)
			buf.byOffset[msg.Offset] = msg
			atomic.AddInt64(&workerCommitPendingTotal, 1)
			return
		}
		buf.next = msg.Offset + 1
	}
}

// flush drains every partition once on shutdown. Messages stuck behind an
// offset gap stay uncommitted and redeliver to the next consumer.
func (c *commitCoordinator) flush(ctx context.Context) {
	c.mu.Lock()
	partitions := make([]int, 0, len(c.parts))
	for p := range c.parts {
		partitions = append(partitions, p)
	}
	c.mu.Unlock()
	for _, p := range partitions {
		c.drain(ctx, p)
	}
}
