package service

import (
	"sync"

	"github.com/google/uuid"
	"github.com/kinterstore/qrishub.go/db/models"
	"github.com/ziflex/lecho/v3"
)

const (
	// AllTransactionsTopic receives every transaction update regardless of owner.
	AllTransactionsTopic int64 = 0
	// SubscriberBufferSize is the capacity subscribers should give their channel.
	// Updates beyond it are dropped for that subscriber.
	SubscriberBufferSize = 64
)

type subscription struct {
	ch   chan models.Transaction
	done chan struct{}
	once sync.Once
}

func (s *subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

// Pubsub fans transaction updates out per user id.
// Publishing never waits on a subscriber.
type Pubsub struct {
	logger *lecho.Logger

	mu   sync.RWMutex
	subs map[int64]map[string]*subscription
	// lock free lookup so Unsubscribe can release a blocked publisher
	byId sync.Map
}

func NewPubsub(logger *lecho.Logger) *Pubsub {
	ps := &Pubsub{logger: logger}
	ps.subs = make(map[int64]map[string]*subscription)
	return ps
}

func (ps *Pubsub) Subscribe(topic int64, ch chan models.Transaction) (subId string, err error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.subs[topic] == nil {
		ps.subs[topic] = make(map[string]*subscription)
	}
	subId = uuid.NewString()
	sub := &subscription{ch: ch, done: make(chan struct{})}
	ps.subs[topic][subId] = sub
	ps.byId.Store(subId, sub)
	return subId, nil
}

// Unsubscribe stops delivery to the subscription. The caller's channel is not
// closed.
func (ps *Pubsub) Unsubscribe(id string, topic int64) error {
	v, ok := ps.byId.LoadAndDelete(id)
	if !ok {
		return nil
	}
	v.(*subscription).stop()

	ps.mu.Lock()
	defer ps.mu.Unlock()
	delete(ps.subs[topic], id)
	if len(ps.subs[topic]) == 0 {
		delete(ps.subs, topic)
	}
	return nil
}

func (ps *Pubsub) Publish(topic int64, msg models.Transaction) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for id, sub := range ps.subs[topic] {
		select {
		case <-sub.done:
			continue
		default:
		}
		select {
		case sub.ch <- msg:
		default:
			if ps.logger != nil {
				ps.logger.Warnf("Subscriber %s on topic %d is full, dropping update for %s", id, topic, msg.Reference)
			}
		}
	}
}

// PublishTransaction delivers to the owner and to the catch-all topic.
func (ps *Pubsub) PublishTransaction(t models.Transaction) {
	t.WithoutProof()
	ps.Publish(t.UserID, t)
	ps.Publish(AllTransactionsTopic, t)
}

func (ps *Pubsub) SubscriberCount(topic int64) int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subs[topic])
}
