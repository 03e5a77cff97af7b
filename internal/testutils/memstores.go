package testutils

import (
	"context"
	"fmt"
	"sync"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/nfrund/campus/internal/domain"
)

// MemStore is an in-memory implementation of every repository the server
// uses, for tests that run without SurrealDB.
type MemStore struct {
	mu          sync.Mutex
	profiles    map[string]domain.Profile
	communities map[string]*domain.Community
	messages    []*domain.Message
	exams       []*domain.Exam
	results     map[string]*domain.QuizResult
	files       map[string]*domain.File
	seq         int
}

var (
	_ domain.ProfileRepository   = (*MemStore)(nil)
	_ domain.CommunityRepository = (*MemStore)(nil)
	_ domain.MessageRepository   = (*MemStore)(nil)
	_ domain.ExamRepository      = (*MemStore)(nil)
	_ domain.ResultRepository    = (*MemStore)(nil)
)

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		profiles:    make(map[string]domain.Profile),
		communities: make(map[string]*domain.Community),
		results:     make(map[string]*domain.QuizResult),
		files:       make(map[string]*domain.File),
	}
}

// AddProfile seeds a profile.
func (s *MemStore) AddProfile(p domain.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
}

// AddCommunity seeds a community with its members.
func (s *MemStore) AddCommunity(communityID string, members ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.communities[communityID] = &domain.Community{CommunityID: communityID, Members: members}
}

// AddExam seeds an exam definition.
func (s *MemStore) AddExam(e *domain.Exam) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exams = append(s.exams, e)
}

// MessageRefs returns the message references linked to a community.
func (s *MemStore) MessageRefs(communityID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.communities[communityID]; ok {
		return append([]string(nil), c.Messages...)
	}
	return nil
}

func (s *MemStore) nextID(table string) *surrealmodels.RecordID {
	s.seq++
	id := surrealmodels.NewRecordID(table, fmt.Sprintf("m%04d", s.seq))
	return &id
}

func (s *MemStore) ResolveSender(_ context.Context, userID string) (*domain.Sender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, domain.ErrSenderNotFound
	}
	sender := p.Sender()
	return &sender, nil
}

func (s *MemStore) GetMembers(_ context.Context, communityID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.communities[communityID]
	if !ok {
		return nil, domain.ErrCommunityNotFound
	}
	return append([]string(nil), c.Members...), nil
}

func (s *MemStore) AppendMessageRef(_ context.Context, communityID, messageRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.communities[communityID]
	if !ok {
		return domain.ErrCommunityNotFound
	}
	c.Messages = append(c.Messages, messageRef)
	return nil
}

func (s *MemStore) Append(_ context.Context, m *domain.Message) (*domain.Message, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *m
	stored.ID = s.nextID("message")
	stored.Timestamp = &surrealmodels.CustomDateTime{Time: time.Now().UTC()}
	s.messages = append(s.messages, &stored)
	return &stored, nil
}

func (s *MemStore) ListByCommunity(_ context.Context, communityID string, limit int) ([]*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Message
	for _, m := range s.messages {
		if m.CommunityID == communityID {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *MemStore) FindByID(_ context.Context, courseID, examID string) (*domain.Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.exams {
		if e.CourseID == courseID && e.ExamID == examID {
			return e, nil
		}
	}
	return nil, domain.ErrExamNotFound
}

func (s *MemStore) ListByCourse(_ context.Context, courseID string) ([]*domain.Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Exam
	for _, e := range s.exams {
		if e.CourseID == courseID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemStore) FindForStudent(_ context.Context, courseID, examID, studentID string) (*domain.QuizResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results[courseID+"/"+examID+"/"+studentID], nil
}

func (s *MemStore) Create(_ context.Context, r *domain.QuizResult) (*domain.QuizResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := r.CourseID + "/" + r.ExamID + "/" + r.StudentID
	if _, ok := s.results[key]; ok {
		return nil, fmt.Errorf("%w: duplicate result", domain.ErrPersistence)
	}
	stored := *r
	stored.ID = s.nextID("quiz_result")
	s.results[key] = &stored
	return &stored, nil
}

// Files returns the attachment metadata view of the store. It is separate
// because FileRepository and ResultRepository both name a Create method.
func (s *MemStore) Files() domain.FileRepository {
	return memFiles{s}
}

type memFiles struct{ s *MemStore }

func (f memFiles) Create(_ context.Context, file *domain.File) (*domain.File, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	stored := *file
	stored.ID = f.s.nextID("file")
	stored.CreatedAt = &surrealmodels.CustomDateTime{Time: time.Now().UTC()}
	f.s.files[stored.ID.String()] = &stored
	return &stored, nil
}

func (f memFiles) FindByID(_ context.Context, fileID string) (*domain.File, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	file, ok := f.s.files[fileID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return file, nil
}

func (f memFiles) DeleteByID(_ context.Context, fileID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	delete(f.s.files, fileID)
	return nil
}
