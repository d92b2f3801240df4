package domain

import (
	"fmt"
	"sort"
	"time"
)

type StreamID string

// StreamStatus is the broadcast lifecycle state. It only ever moves forward:
// pending -> live -> ended.
type StreamStatus string

const (
	StreamPending StreamStatus = "pending"
	StreamLive    StreamStatus = "live"
	StreamEnded   StreamStatus = "ended"
)

var statusOrder = map[StreamStatus]int{
	StreamPending: 0,
	StreamLive:    1,
	StreamEnded:   2,
}

// ParseStreamStatus validates a status string received over the wire.
func ParseStreamStatus(s string) (StreamStatus, error) {
	status := StreamStatus(s)
	if _, ok := statusOrder[status]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidStreamStatus, s)
	}
	return status, nil
}

// CanTransition reports whether a stream may move from one status to another.
func (s StreamStatus) CanTransition(to StreamStatus) bool {
	from, ok := statusOrder[s]
	if !ok {
		return false
	}
	next, ok := statusOrder[to]
	if !ok {
		return false
	}
	return next == from+1
}

// Stream is a broadcast session together with its viewer register.
// ViewerCount always equals len(Viewers) once an operation has completed.
type Stream struct {
	ID          StreamID            `json:"id"`
	Name        string              `json:"name"`
	OwnerID     UserID              `json:"ownerId,omitempty"`
	Status      StreamStatus        `json:"status"`
	Viewers     map[UserID]struct{} `json:"-"`
	ViewerCount int                 `json:"viewerCount"`
	CreatedAt   time.Time           `json:"createdAt"`
	LastUpdated time.Time           `json:"lastUpdated"`
}

func NewStream(id StreamID, name string, owner UserID, now time.Time) *Stream {
	return &Stream{
		ID:          id,
		Name:        name,
		OwnerID:     owner,
		Status:      StreamPending,
		Viewers:     make(map[UserID]struct{}),
		CreatedAt:   now,
		LastUpdated: now,
	}
}

func (s *Stream) IsLive() bool {
	return s.Status == StreamLive
}

func (s *Stream) HasViewer(id UserID) bool {
	_, ok := s.Viewers[id]
	return ok
}

// ViewerList returns the viewer ids in a stable order.
func (s *Stream) ViewerList() []UserID {
	list := make([]UserID, 0, len(s.Viewers))
	for id := range s.Viewers {
		list = append(list, id)
	}
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	return list
}

// Clone returns a deep copy so callers never share the viewer set with a repository.
func (s *Stream) Clone() *Stream {
	c := *s
	c.Viewers = make(map[UserID]struct{}, len(s.Viewers))
	for id := range s.Viewers {
		c.Viewers[id] = struct{}{}
	}
	return &c
}

// JoinResult is the outcome of registering a viewer.
type JoinResult struct {
	Joined         bool
	AlreadyPresent bool
	ViewerCount    int
}
