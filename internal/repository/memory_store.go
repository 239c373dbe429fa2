package repository

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is a Store held in process memory. It backs the service when
// no database is configured and in tests. Transactions are serialized by a
// single mutex and rolled back by restoring a snapshot.
type MemoryStore struct {
	root *memoryRoot
	inTx bool
}

type memoryRoot struct {
	mu    sync.Mutex
	state *memoryState
	now   func() time.Time
}

type memoryState struct {
	roles    map[domain.Role]bool
	users    []domain.User
	tickets  []domain.Ticket
	comments []memoryComment
	logs     []memoryLog
	seq      int64
}

type memoryComment struct {
	domain.Comment
	seq int64
}

type memoryLog struct {
	domain.StatusLog
	seq int64
}

// NewMemoryStore returns an empty store with the fixed roles seeded.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(func() time.Time { return time.Now().UTC() })
}

// NewMemoryStoreWithClock is NewMemoryStore with a custom timestamp source.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	roles := make(map[domain.Role]bool, len(domain.Roles()))
	for _, role := range domain.Roles() {
		roles[role] = true
	}
	return &MemoryStore{root: &memoryRoot{
		state: &memoryState{roles: roles},
		now:   now,
	}}
}

func (s *MemoryStore) Users() UserRepository           { return memoryUsers{s} }
func (s *MemoryStore) Tickets() TicketRepository       { return memoryTickets{s} }
func (s *MemoryStore) Comments() CommentRepository     { return memoryComments{s} }
func (s *MemoryStore) StatusLogs() StatusLogRepository { return memoryStatusLogs{s} }

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.root.mu.Lock()
	defer s.root.mu.Unlock()

	snapshot := s.root.state.clone()
	if err := fn(&MemoryStore{root: s.root, inTx: true}); err != nil {
		s.root.state = snapshot
		return err
	}
	return nil
}

func (s *MemoryStore) do(fn func(st *memoryState) error) error {
	if !s.inTx {
		s.root.mu.Lock()
		defer s.root.mu.Unlock()
	}
	return fn(s.root.state)
}

func (st *memoryState) clone() *memoryState {
	return &memoryState{
		roles:    maps.Clone(st.roles),
		users:    slices.Clone(st.users),
		tickets:  slices.Clone(st.tickets),
		comments: slices.Clone(st.comments),
		logs:     slices.Clone(st.logs),
		seq:      st.seq,
	}
}

func (st *memoryState) nextSeq() int64 {
	st.seq++
	return st.seq
}

func (st *memoryState) userIndex(id string) int {
	return slices.IndexFunc(st.users, func(u domain.User) bool { return u.ID == id })
}

func (st *memoryState) ticketIndex(id string) int {
	return slices.IndexFunc(st.tickets, func(t domain.Ticket) bool { return t.ID == id })
}

func (st *memoryState) commentIndex(id string) int {
	return slices.IndexFunc(st.comments, func(c memoryComment) bool { return c.ID == id })
}

func (st *memoryState) summary(userID string) (domain.UserSummary, bool) {
	idx := st.userIndex(userID)
	if idx < 0 {
		return domain.UserSummary{}, false
	}
	return st.users[idx].Summary(), true
}

func (st *memoryState) ticketView(ticket domain.Ticket) domain.TicketView {
	view := domain.TicketView{Ticket: ticket}
	view.Creator, _ = st.summary(ticket.CreatedBy)
	if id, ok := ticket.AssignedTo.Get(); ok {
		if assignee, found := st.summary(id); found {
			view.Assignee = &assignee
		}
	}
	return view
}

type memoryUsers struct{ s *MemoryStore }

func (r memoryUsers) Create(_ context.Context, user *domain.User) error {
	return r.s.do(func(st *memoryState) error {
		if !st.roles[user.Role] {
			return ErrNotFound
		}
		for _, existing := range st.users {
			if existing.Email == user.Email {
				return ErrDuplicate
			}
		}
		user.ID = uuid.NewString()
		user.CreatedAt = r.s.root.now()
		st.users = append(st.users, *user)
		return nil
	})
}

func (r memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := r.s.do(func(st *memoryState) error {
		idx := st.userIndex(id)
		if idx < 0 {
			return ErrNotFound
		}
		user = st.users[idx]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r memoryUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.s.do(func(st *memoryState) error {
		idx := slices.IndexFunc(st.users, func(u domain.User) bool { return u.Email == email })
		if idx < 0 {
			return ErrNotFound
		}
		user = st.users[idx]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r memoryUsers) Exists(_ context.Context, id string) (bool, error) {
	var exists bool
	err := r.s.do(func(st *memoryState) error {
		exists = st.userIndex(id) >= 0
		return nil
	})
	return exists, err
}

func (r memoryUsers) List(_ context.Context) ([]domain.User, error) {
	var users []domain.User
	err := r.s.do(func(st *memoryState) error {
		users = slices.Clone(st.users)
		return nil
	})
	if users == nil {
		users = []domain.User{}
	}
	return users, err
}

type memoryTickets struct{ s *MemoryStore }

func (r memoryTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	return r.s.do(func(st *memoryState) error {
		if st.userIndex(ticket.CreatedBy) < 0 {
			return ErrNotFound
		}
		if id, ok := ticket.AssignedTo.Get(); ok && st.userIndex(id) < 0 {
			return ErrNotFound
		}
		ticket.ID = uuid.NewString()
		ticket.CreatedAt = r.s.root.now()
		st.tickets = append(st.tickets, *ticket)
		return nil
	})
}

func (r memoryTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	var ticket domain.Ticket
	err := r.s.do(func(st *memoryState) error {
		idx := st.ticketIndex(id)
		if idx < 0 {
			return ErrNotFound
		}
		ticket = st.tickets[idx]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// GetForUpdate needs no row lock: transactions already hold the store mutex.
func (r memoryTickets) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r memoryTickets) UpdateStatus(_ context.Context, id string, status domain.TicketStatus) error {
	return r.s.do(func(st *memoryState) error {
		idx := st.ticketIndex(id)
		if idx < 0 {
			return ErrNotFound
		}
		st.tickets[idx].Status = status
		return nil
	})
}

func (r memoryTickets) UpdateAssignee(_ context.Context, id string, assignee domain.OptionalID) error {
	return r.s.do(func(st *memoryState) error {
		idx := st.ticketIndex(id)
		if idx < 0 {
			return ErrNotFound
		}
		if userID, ok := assignee.Get(); ok && st.userIndex(userID) < 0 {
			return ErrNotFound
		}
		st.tickets[idx].AssignedTo = assignee
		return nil
	})
}

func (r memoryTickets) Delete(_ context.Context, id string) error {
	return r.s.do(func(st *memoryState) error {
		idx := st.ticketIndex(id)
		if idx < 0 {
			return ErrNotFound
		}
		st.tickets = slices.Delete(st.tickets, idx, idx+1)
		st.comments = slices.DeleteFunc(st.comments, func(c memoryComment) bool { return c.TicketID == id })
		st.logs = slices.DeleteFunc(st.logs, func(l memoryLog) bool { return l.TicketID == id })
		return nil
	})
}

func (r memoryTickets) GetView(_ context.Context, id string) (*domain.TicketView, error) {
	var view domain.TicketView
	err := r.s.do(func(st *memoryState) error {
		idx := st.ticketIndex(id)
		if idx < 0 {
			return ErrNotFound
		}
		view = st.ticketView(st.tickets[idx])
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (r memoryTickets) ListViews(_ context.Context) ([]domain.TicketView, error) {
	views := []domain.TicketView{}
	err := r.s.do(func(st *memoryState) error {
		for _, ticket := range st.tickets {
			views = append(views, st.ticketView(ticket))
		}
		return nil
	})
	return views, err
}

type memoryComments struct{ s *MemoryStore }

func (r memoryComments) Create(_ context.Context, comment *domain.Comment) error {
	return r.s.do(func(st *memoryState) error {
		if st.ticketIndex(comment.TicketID) < 0 || st.userIndex(comment.AuthorID) < 0 {
			return ErrNotFound
		}
		comment.ID = uuid.NewString()
		comment.CreatedAt = r.s.root.now()
		st.comments = append(st.comments, memoryComment{Comment: *comment, seq: st.nextSeq()})
		return nil
	})
}

func (r memoryComments) GetByID(_ context.Context, id string) (*domain.Comment, error) {
	var comment domain.Comment
	err := r.s.do(func(st *memoryState) error {
		idx := st.commentIndex(id)
		if idx < 0 {
			return ErrNotFound
		}
		comment = st.comments[idx].Comment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r memoryComments) UpdateText(_ context.Context, id, text string) error {
	return r.s.do(func(st *memoryState) error {
		idx := st.commentIndex(id)
		if idx < 0 {
			return ErrNotFound
		}
		st.comments[idx].Text = text
		return nil
	})
}

func (r memoryComments) Delete(_ context.Context, id string) error {
	return r.s.do(func(st *memoryState) error {
		idx := st.commentIndex(id)
		if idx < 0 {
			return ErrNotFound
		}
		st.comments = slices.Delete(st.comments, idx, idx+1)
		return nil
	})
}

func (r memoryComments) GetView(_ context.Context, id string) (*domain.CommentView, error) {
	var view domain.CommentView
	err := r.s.do(func(st *memoryState) error {
		idx := st.commentIndex(id)
		if idx < 0 {
			return ErrNotFound
		}
		view.Comment = st.comments[idx].Comment
		view.Author, _ = st.summary(view.AuthorID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (r memoryComments) ListViewsByTicket(_ context.Context, ticketID string) ([]domain.CommentView, error) {
	views := []domain.CommentView{}
	err := r.s.do(func(st *memoryState) error {
		thread := make([]memoryComment, 0)
		for _, c := range st.comments {
			if c.TicketID == ticketID {
				thread = append(thread, c)
			}
		}
		sort.SliceStable(thread, func(i, j int) bool {
			if !thread[i].CreatedAt.Equal(thread[j].CreatedAt) {
				return thread[i].CreatedAt.Before(thread[j].CreatedAt)
			}
			return thread[i].seq < thread[j].seq
		})
		for _, c := range thread {
			view := domain.CommentView{Comment: c.Comment}
			view.Author, _ = st.summary(c.AuthorID)
			views = append(views, view)
		}
		return nil
	})
	return views, err
}

type memoryStatusLogs struct{ s *MemoryStore }

func (r memoryStatusLogs) Append(_ context.Context, entry *domain.StatusLog) error {
	return r.s.do(func(st *memoryState) error {
		if st.ticketIndex(entry.TicketID) < 0 || st.userIndex(entry.ChangedBy) < 0 {
			return ErrNotFound
		}
		entry.ID = uuid.NewString()
		entry.ChangedAt = r.s.root.now()
		st.logs = append(st.logs, memoryLog{StatusLog: *entry, seq: st.nextSeq()})
		return nil
	})
}

func (r memoryStatusLogs) ListByTicket(_ context.Context, ticketID string) ([]domain.StatusLog, error) {
	entries := []domain.StatusLog{}
	err := r.s.do(func(st *memoryState) error {
		matched := make([]memoryLog, 0)
		for _, l := range st.logs {
			if l.TicketID == ticketID {
				matched = append(matched, l)
			}
		}
		sort.SliceStable(matched, func(i, j int) bool {
			if !matched[i].ChangedAt.Equal(matched[j].ChangedAt) {
				return matched[i].ChangedAt.Before(matched[j].ChangedAt)
			}
			return matched[i].seq < matched[j].seq
		})
		for _, l := range matched {
			entries = append(entries, l.StatusLog)
		}
		return nil
	})
	return entries, err
}
