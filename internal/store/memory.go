package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"cropwise-backend/internal/models"
)

// Memory is an in-memory Store used by tests and local development. A single
// mutex serializes transactions, which trivially satisfies the atomicity and
// serialization guarantees the Mongo implementation gets from sessions.
// Writes inside a transaction are staged and applied only on commit.
type Memory struct {
	mu sync.Mutex

	users         map[primitive.ObjectID]models.User
	posts         map[primitive.ObjectID]models.Post
	comments      map[primitive.ObjectID]models.Comment
	votes         map[voteKey]models.Vote
	fields        map[primitive.ObjectID]models.Field
	alerts        []models.OutbreakAlert
	notifications map[primitive.ObjectID]models.Notification
}

type voteKey struct {
	subjectID primitive.ObjectID
	userID    primitive.ObjectID
}

func NewMemory() *Memory {
	return &Memory{
		users:         make(map[primitive.ObjectID]models.User),
		posts:         make(map[primitive.ObjectID]models.Post),
		comments:      make(map[primitive.ObjectID]models.Comment),
		votes:         make(map[voteKey]models.Vote),
		fields:        make(map[primitive.ObjectID]models.Field),
		notifications: make(map[primitive.ObjectID]models.Notification),
	}
}

func (m *Memory) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{
		m:        m,
		counters: make(map[SubjectRef]Counters),
		votes:    make(map[voteKey]int),
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

type memTx struct {
	m        *Memory
	counters map[SubjectRef]Counters
	votes    map[voteKey]int
	comments []models.Comment
}

func (t *memTx) Subject(ref SubjectRef) (Subject, error) {
	subject, err := t.m.subjectLocked(ref)
	if err != nil {
		return Subject{}, err
	}
	if staged, ok := t.counters[ref]; ok {
		subject.Counters = staged
	}
	return subject, nil
}

func (t *memTx) SetCounters(ref SubjectRef, c Counters) error {
	if _, err := t.m.subjectLocked(ref); err != nil {
		return err
	}
	t.counters[ref] = c
	return nil
}

func (t *memTx) Vote(ref SubjectRef, userID primitive.ObjectID) (int, error) {
	key := voteKey{subjectID: ref.SubjectID(), userID: userID}
	if staged, ok := t.votes[key]; ok {
		return staged, nil
	}
	if vote, ok := t.m.votes[key]; ok {
		return vote.Value, nil
	}
	return 0, nil
}

func (t *memTx) SetVote(ref SubjectRef, userID primitive.ObjectID, value int) error {
	t.votes[voteKey{subjectID: ref.SubjectID(), userID: userID}] = value
	return nil
}

func (t *memTx) InsertComment(comment *models.Comment) error {
	if comment.ID.IsZero() {
		comment.ID = primitive.NewObjectID()
	}
	t.comments = append(t.comments, *comment)
	return nil
}

// commit applies staged writes; caller holds m.mu.
func (t *memTx) commit() {
	for ref, c := range t.counters {
		if ref.IsComment() {
			comment := t.m.comments[ref.CommentID]
			comment.LikeCount = c.Likes
			comment.DislikeCount = c.Dislikes
			comment.VoteCount = c.Votes
			t.m.comments[ref.CommentID] = comment
		} else {
			post := t.m.posts[ref.PostID]
			post.LikeCount = c.Likes
			post.DislikeCount = c.Dislikes
			post.VoteCount = c.Votes
			post.CommentCount = c.Comments
			t.m.posts[ref.PostID] = post
		}
	}
	for key, value := range t.votes {
		t.m.votes[key] = models.Vote{
			SubjectID: key.subjectID,
			UserID:    key.userID,
			Value:     value,
			UpdatedAt: time.Now(),
		}
	}
	for _, comment := range t.comments {
		t.m.comments[comment.ID] = comment
	}
}

func (m *Memory) subjectLocked(ref SubjectRef) (Subject, error) {
	if ref.IsComment() {
		comment, ok := m.comments[ref.CommentID]
		if !ok || comment.PostID != ref.PostID {
			return Subject{}, ErrNotFound
		}
		return Subject{
			Ref:     ref,
			OwnerID: comment.AuthorID,
			Counters: Counters{
				Likes:    comment.LikeCount,
				Dislikes: comment.DislikeCount,
				Votes:    comment.VoteCount,
			},
		}, nil
	}

	post, ok := m.posts[ref.PostID]
	if !ok {
		return Subject{}, ErrNotFound
	}
	return Subject{
		Ref:     ref,
		OwnerID: post.AuthorID,
		Title:   post.Title,
		Counters: Counters{
			Likes:    post.LikeCount,
			Dislikes: post.DislikeCount,
			Votes:    post.VoteCount,
			Comments: post.CommentCount,
		},
	}, nil
}

// --- users ---

func (m *Memory) InsertUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrDuplicateEmail
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	m.users[u.ID] = *u
	return nil
}

func (m *Memory) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *Memory) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) SaveUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[u.ID]; !ok {
		return ErrNotFound
	}
	m.users[u.ID] = *u
	return nil
}

// --- posts & comments ---

func (m *Memory) InsertPost(ctx context.Context, p *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	m.posts[p.ID] = *p
	return nil
}

func (m *Memory) GetPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *Memory) ListPosts(ctx context.Context, filter PostFilter) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var posts []models.Post
	for _, p := range m.posts {
		if filter.CropType != "" && p.CropType != filter.CropType {
			continue
		}
		if !filter.AuthorID.IsZero() && p.AuthorID != filter.AuthorID {
			continue
		}
		posts = append(posts, p)
	}
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	return posts, nil
}

func (m *Memory) SetBestAnswer(ctx context.Context, postID, commentID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	post, ok := m.posts[postID]
	if !ok {
		return ErrNotFound
	}
	post.BestAnswerID = &commentID
	m.posts[postID] = post
	return nil
}

func (m *Memory) GetComment(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *Memory) ListComments(ctx context.Context, postID primitive.ObjectID) ([]models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var comments []models.Comment
	for _, c := range m.comments {
		if c.PostID == postID {
			comments = append(comments, c)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		if comments[i].VoteCount != comments[j].VoteCount {
			return comments[i].VoteCount > comments[j].VoteCount
		}
		return comments[i].CreatedAt.After(comments[j].CreatedAt)
	})
	return comments, nil
}

func (m *Memory) UserVote(ctx context.Context, ref SubjectRef, userID primitive.ObjectID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if vote, ok := m.votes[voteKey{subjectID: ref.SubjectID(), userID: userID}]; ok {
		return vote.Value, nil
	}
	return 0, nil
}

// --- fields ---

func (m *Memory) InsertField(ctx context.Context, f *models.Field) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f.ID.IsZero() {
		f.ID = primitive.NewObjectID()
	}
	m.fields[f.ID] = *f
	return nil
}

func (m *Memory) GetField(ctx context.Context, id primitive.ObjectID) (*models.Field, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.fields[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &f, nil
}

func (m *Memory) ListFields(ctx context.Context) ([]models.Field, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fields := make([]models.Field, 0, len(m.fields))
	for _, f := range m.fields {
		fields = append(fields, f)
	}
	return fields, nil
}

func (m *Memory) FieldsByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Field, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var fields []models.Field
	for _, f := range m.fields {
		if f.OwnerID == ownerID {
			fields = append(fields, f)
		}
	}
	sort.Slice(fields, func(i, j int) bool {
		return fields[i].CreatedAt.After(fields[j].CreatedAt)
	})
	return fields, nil
}

func (m *Memory) SetFieldScan(ctx context.Context, fieldID primitive.ObjectID, scan *models.ScanResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	field, ok := m.fields[fieldID]
	if !ok {
		return ErrNotFound
	}
	field.LastScan = scan
	m.fields[fieldID] = field
	return nil
}

// --- outbreak alerts ---

func (m *Memory) InsertAlert(ctx context.Context, a *models.OutbreakAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	m.alerts = append(m.alerts, *a)
	return nil
}

func (m *Memory) GetAlert(ctx context.Context, id primitive.ObjectID) (*models.OutbreakAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.alerts {
		if m.alerts[i].ID == id {
			alert := m.alerts[i]
			return &alert, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) SetAlertStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.alerts {
		if m.alerts[i].ID == id {
			m.alerts[i].Status = status
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) ListAlerts(ctx context.Context) ([]models.OutbreakAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	alerts := make([]models.OutbreakAlert, len(m.alerts))
	copy(alerts, m.alerts)
	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})
	return alerts, nil
}

// --- notifications ---

func (m *Memory) InsertNotification(ctx context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	m.notifications[n.ID] = *n
	return nil
}

func (m *Memory) ListNotifications(ctx context.Context, recipientID primitive.ObjectID, includeRead bool) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var notifications []models.Notification
	for _, n := range m.notifications {
		if n.RecipientID != recipientID {
			continue
		}
		if !includeRead && n.IsRead {
			continue
		}
		notifications = append(notifications, n)
	}
	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	return notifications, nil
}

func (m *Memory) CountNotifications(ctx context.Context, recipientID primitive.ObjectID) (models.NotificationCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count models.NotificationCount
	for _, n := range m.notifications {
		if n.RecipientID != recipientID {
			continue
		}
		count.Total++
		if !n.IsRead {
			count.Unread++
		}
	}
	return count, nil
}

func (m *Memory) MarkNotificationRead(ctx context.Context, id, recipientID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.notifications[id]
	if !ok || n.RecipientID != recipientID {
		return ErrNotFound
	}
	now := time.Now()
	n.IsRead = true
	n.ReadAt = &now
	m.notifications[id] = n
	return nil
}

func (m *Memory) MarkAllNotificationsRead(ctx context.Context, recipientID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for id, n := range m.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &now
			m.notifications[id] = n
		}
	}
	return nil
}

func (m *Memory) DeleteNotification(ctx context.Context, id, recipientID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.notifications[id]
	if !ok || n.RecipientID != recipientID {
		return ErrNotFound
	}
	delete(m.notifications, id)
	return nil
}
