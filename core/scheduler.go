package core

// scheduler.go implements the totally-ordered, deduplicated event queue.
// The ordering key and the heap itself are grounded on the Dijkstra
// frontier in an AMM router's pathfinder (container/heap over a small
// ordering struct with a tie-break field) adapted here to
// (trigger_time, priority, symbol, event_id).

import (
	"container/heap"
)

// Event is a scheduled future action against a single unit. Construct
// with NewEvent, never by literal, so EventID is always the canonical
// hash of (Action, Symbol, TriggerTime, Params) rather than a
// caller-chosen name — that's what lets Schedule and MarkExecuted
// deduplicate by content.
type Event struct {
	EventID     string
	TriggerTime LogicalTime
	Priority    int
	Symbol      string
	Action      string
	Params      *OrderedMap
}

// NewEvent builds an Event and derives its EventID via computeEventID,
// the same canonical-hash construction PendingTransaction uses for
// intent_id. hashBits selects how much of the digest is kept; pass 0 to
// use the 128-bit default.
func NewEvent(triggerTime LogicalTime, priority int, symbol, action string, params *OrderedMap, hashBits int) Event {
	return Event{
		EventID:     computeEventID(action, symbol, triggerTime, params, hashBits),
		TriggerTime: triggerTime,
		Priority:    priority,
		Symbol:      symbol,
		Action:      action,
		Params:      params,
	}
}

// Scheduler is a priority queue of Events ordered by
// (trigger_time, priority, symbol, event_id) ascending, with O(1)
// membership lookup by EventID for dedup and cancellation. executed
// records ids of events already handled by a Lifecycle, so they stay
// deduplicated even after they leave the pending queue.
type Scheduler struct {
	pq       eventHeap
	index    map[string]*eventHeapItem
	executed map[string]bool
}

// NewScheduler returns an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{index: make(map[string]*eventHeapItem), executed: make(map[string]bool)}
}

// Schedule inserts event unless its EventID is already pending or
// already recorded as executed, in which case it is a pure no-op: event
// ids are content hashes, so a duplicate submission can never mean
// anything other than "the same event again."
func (s *Scheduler) Schedule(event Event) {
	if _, ok := s.index[event.EventID]; ok {
		return
	}
	if s.executed[event.EventID] {
		return
	}
	item := &eventHeapItem{event: event}
	heap.Push(&s.pq, item)
	s.index[event.EventID] = item
}

// MarkExecuted records eventID as executed, so a later Schedule call
// carrying the same id stays a no-op even though the event is no longer
// pending.
func (s *Scheduler) MarkExecuted(eventID string) {
	s.executed[eventID] = true
}

// Cancel removes a pending event by id, reporting whether it was found.
// It does not affect the executed set.
func (s *Scheduler) Cancel(eventID string) bool {
	item, ok := s.index[eventID]
	if !ok {
		return false
	}
	heap.Remove(&s.pq, item.index)
	delete(s.index, eventID)
	return true
}

// Len reports the number of pending events.
func (s *Scheduler) Len() int { return len(s.pq) }

// DueBefore returns every pending event with TriggerTime <= asOf, removed
// from the queue and returned in ascending
// (trigger_time, priority, symbol, event_id) order.
func (s *Scheduler) DueBefore(asOf LogicalTime) []Event {
	var due []Event
	for s.pq.Len() > 0 && !s.pq[0].event.TriggerTime.After(asOf) {
		item := heap.Pop(&s.pq).(*eventHeapItem)
		delete(s.index, item.event.EventID)
		due = append(due, item.event)
	}
	return due
}

// eventHeapItem wraps an Event with its current heap index, so Cancel can
// call heap.Remove in O(log n).
type eventHeapItem struct {
	event Event
	index int
}

type eventHeap []*eventHeapItem

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	a, b := h[i].event, h[j].event
	if !a.TriggerTime.Equal(b.TriggerTime) {
		return a.TriggerTime.Before(b.TriggerTime)
	}
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	if a.Symbol != b.Symbol {
		return a.Symbol < b.Symbol
	}
	return a.EventID < b.EventID
}

func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *eventHeap) Push(x any) {
	item := x.(*eventHeapItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// HandlerRegistry maps an Event's Action to the EventHandler that
// interprets it. Looking up an unregistered action is a programming
// error in the caller and panics rather than silently dropping the event.
type HandlerRegistry struct {
	handlers map[string]EventHandler
}

// NewHandlerRegistry returns an empty registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string]EventHandler)}
}

// Register binds action to handler, overwriting any existing binding.
func (r *HandlerRegistry) Register(action string, handler EventHandler) {
	r.handlers[action] = handler
}

// Lookup returns the handler bound to action, panicking if none exists.
func (r *HandlerRegistry) Lookup(action string) EventHandler {
	h, ok := r.handlers[action]
	if !ok {
		panic("core: no EventHandler registered for action " + action)
	}
	return h
}
