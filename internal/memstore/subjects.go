package memstore

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/MrEthical07/sellerhub"
)

// Subjects is a concurrency-safe [sellerhub.SubjectStore].
type Subjects struct {
	mu      sync.RWMutex
	byID    map[string]sellerhub.Subject
	byEmail map[string]string
	seq     int
	err     error
}

// NewSubjects returns an empty store.
func NewSubjects() *Subjects {
	return &Subjects{
		byID:    map[string]sellerhub.Subject{},
		byEmail: map[string]string{},
	}
}

// FailWith makes every subsequent call return err. Nil restores normal behavior.
func (s *Subjects) FailWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Len returns the number of stored subjects.
func (s *Subjects) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Put inserts or replaces a subject as-is. Test seeding only.
func (s *Subjects) Put(subject sellerhub.Subject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[subject.ID] = subject
	s.byEmail[subject.Email] = subject.ID
}

// FindByEmail returns the subject registered with email.
func (s *Subjects) FindByEmail(_ context.Context, email string) (*sellerhub.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}

	id, ok := s.byEmail[email]
	if !ok {
		return nil, sellerhub.ErrSubjectNotFound
	}
	subject := s.byID[id]
	return &subject, nil
}

// FindByID returns the subject with the given id.
func (s *Subjects) FindByID(_ context.Context, id string) (*sellerhub.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}

	subject, ok := s.byID[id]
	if !ok {
		return nil, sellerhub.ErrSubjectNotFound
	}
	return &subject, nil
}

// Create registers a subject. A second subject with the same email gets
// [sellerhub.ErrEmailTaken], like the unique index in Mongo.
func (s *Subjects) Create(_ context.Context, in sellerhub.NewSubject) (*sellerhub.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}

	if _, taken := s.byEmail[in.Email]; taken {
		return nil, sellerhub.ErrEmailTaken
	}

	s.seq++
	subject := sellerhub.Subject{
		ID:             "s" + strconv.Itoa(s.seq),
		Name:           in.Name,
		Email:          in.Email,
		Picture:        in.Picture,
		CredentialHash: in.CredentialHash,
		CreatedAt:      in.CreatedAt,
		LastLoginAt:    in.CreatedAt,
	}
	s.byID[subject.ID] = subject
	s.byEmail[subject.Email] = subject.ID

	out := subject
	return &out, nil
}

// TouchLastLogin updates the subject's last sign-in time.
func (s *Subjects) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}

	subject, ok := s.byID[id]
	if !ok {
		return sellerhub.ErrSubjectNotFound
	}
	subject.LastLoginAt = at
	s.byID[id] = subject
	return nil
}
