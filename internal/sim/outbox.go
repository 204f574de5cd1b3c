package sim

import (
	"context"
	"sync"
)

type actuatorCommand struct {
	roomID int
	act    Actuator
	on     bool
}

// outbox is an unbounded FIFO of actuator commands drained by one goroutine.
// push never blocks.
type outbox struct {
	mu     sync.Mutex
	queue  []actuatorCommand
	notify chan struct{}
}

func newOutbox() *outbox {
	return &outbox{notify: make(chan struct{}, 1)}
}

func (o *outbox) push(cmd actuatorCommand) {
	o.mu.Lock()
	o.queue = append(o.queue, cmd)
	o.mu.Unlock()
	select {
	case o.notify <- struct{}{}:
	default:
	}
}

func (o *outbox) pop() (actuatorCommand, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.queue) == 0 {
		return actuatorCommand{}, false
	}
	cmd := o.queue[0]
	o.queue = o.queue[1:]
	return cmd, true
}

func (o *outbox) drain(ctx context.Context, send func(context.Context, actuatorCommand)) {
	for {
		for {
			cmd, ok := o.pop()
			if !ok {
				break
			}
			send(ctx, cmd)
		}
		select {
		case <-ctx.Done():
			return
		case <-o.notify:
		}
	}
}
