package gateway

import (
	"sync"

	"github.com/google/uuid"
)

// cronJob is a scheduled chat.send trigger. The scheduler trigger and
// prompt assembly behind it live outside this module; this keeps just
// enough state for the methods to round-trip meaningfully: add/remove/
// list against an in-memory table scoped to the owning device.
type cronJob struct {
	ID        string `json:"id"`
	Schedule  string `json:"schedule"`
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

type cronStore struct {
	mu   sync.Mutex
	jobs map[string]cronJob // keyed by device id + "\x00" + job id
}

func newCronStore() *cronStore {
	return &cronStore{jobs: make(map[string]cronJob)}
}

func (s *cronStore) add(deviceID, schedule, sessionID, text string) string {
	id := "cron_" + uuid.NewString()
	s.mu.Lock()
	s.jobs[deviceID+"\x00"+id] = cronJob{ID: id, Schedule: schedule, SessionID: sessionID, Text: text}
	s.mu.Unlock()
	return id
}

func (s *cronStore) remove(deviceID, jobID string) {
	s.mu.Lock()
	delete(s.jobs, deviceID+"\x00"+jobID)
	s.mu.Unlock()
}

func (s *cronStore) list(deviceID string) []cronJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []cronJob
	prefix := deviceID + "\x00"
	for k, job := range s.jobs {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, job)
		}
	}
	return out
}
