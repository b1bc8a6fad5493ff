package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/contentpilot/backend/internal/apperr"
	"github.com/contentpilot/backend/internal/models"
)

// txDriver satisfies just enough of database/sql for BeginTx and Commit; the
// repositories behind the transaction are fakes that never touch it.
type txDriver struct{}

func (txDriver) Open(name string) (driver.Conn, error) { return txConn{}, nil }

type txConn struct{}

func (txConn) Prepare(query string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (txConn) Close() error                              { return nil }
func (txConn) Begin() (driver.Tx, error)                 { return txTx{}, nil }

type txTx struct{}

func (txTx) Commit() error   { return nil }
func (txTx) Rollback() error { return nil }

func init() {
	sql.Register("publishtest", txDriver{})
}

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("publishtest", "")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type fakePostRepo struct {
	nextID int64
	posts  map[int64]*models.Post
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: map[int64]*models.Post{}}
}

func (r *fakePostRepo) add(post *models.Post) *models.Post {
	r.nextID++
	post.ID = r.nextID
	r.posts[post.ID] = post
	return post
}

func (r *fakePostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	copied := *post
	return r.add(&copied).ID, nil
}

func (r *fakePostRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	post, ok := r.posts[id]
	if !ok {
		return nil, nil
	}
	copied := *post
	return &copied, nil
}

func (r *fakePostRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	var out []*models.Post
	for _, post := range r.posts {
		if post.UserID == userID {
			copied := *post
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakePostRepo) ListByContentID(ctx context.Context, contentID int64) ([]*models.Post, error) {
	var out []*models.Post
	for _, post := range r.posts {
		if post.ContentID == contentID {
			copied := *post
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakePostRepo) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	post, ok := r.posts[postID]
	return ok && post.UserID == userID, nil
}

func (r *fakePostRepo) UpdateStatus(ctx context.Context, postID int64, status, errorMessage string) error {
	post := r.posts[postID]
	post.Status = status
	post.ErrorMessage = errorMessage
	return nil
}

func (r *fakePostRepo) MarkPublished(ctx context.Context, postID int64, platformPostID, platformPostURL string, postedAt time.Time) error {
	post := r.posts[postID]
	post.Status = models.PostStatusPublished
	post.PlatformPostID = platformPostID
	post.PlatformPostURL = platformPostURL
	post.PostedAt = &postedAt
	post.ErrorMessage = ""
	return nil
}

func (r *fakePostRepo) Remove(ctx context.Context, id int64) error {
	delete(r.posts, id)
	return nil
}

type fakeSocialAccountRepo struct {
	nextID   int64
	accounts map[int64]*models.SocialAccount
}

func newFakeSocialAccountRepo() *fakeSocialAccountRepo {
	return &fakeSocialAccountRepo{accounts: map[int64]*models.SocialAccount{}}
}

func (r *fakeSocialAccountRepo) add(acc *models.SocialAccount) *models.SocialAccount {
	r.nextID++
	acc.ID = r.nextID
	r.accounts[acc.ID] = acc
	return acc
}

func (r *fakeSocialAccountRepo) Create(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error) {
	copied := *sa
	return r.add(&copied).ID, nil
}

func (r *fakeSocialAccountRepo) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	acc, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	copied := *acc
	return &copied, nil
}

func (r *fakeSocialAccountRepo) GetConnected(ctx context.Context, userID int64, platform models.Platform) (*models.SocialAccount, error) {
	for _, acc := range r.accounts {
		if acc.UserID == userID && acc.Platform == platform && acc.IsConnected {
			copied := *acc
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeSocialAccountRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	var out []*models.SocialAccount
	for _, acc := range r.accounts {
		if acc.UserID == userID {
			copied := *acc
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeSocialAccountRepo) ListExpiringTokens(ctx context.Context, initialTime, finalTime time.Time) ([]*models.SocialAccount, error) {
	return nil, nil
}

func (r *fakeSocialAccountRepo) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	acc, ok := r.accounts[accountID]
	return ok && acc.UserID == userID, nil
}

func (r *fakeSocialAccountRepo) SetToken(ctx context.Context, accountID int64, accessToken, refreshToken string, expiresAt time.Time) error {
	acc := r.accounts[accountID]
	acc.AccessToken = accessToken
	acc.RefreshToken = refreshToken
	return nil
}

func (r *fakeSocialAccountRepo) SetActive(ctx context.Context, accountID int64, active bool) error {
	r.accounts[accountID].IsActive = active
	return nil
}

func (r *fakeSocialAccountRepo) SetLastPostedAt(ctx context.Context, accountID int64, postedAt time.Time) error {
	r.accounts[accountID].LastPostedAt = &postedAt
	return nil
}

func (r *fakeSocialAccountRepo) Remove(ctx context.Context, id int64) error {
	delete(r.accounts, id)
	return nil
}

type fakeLocker struct {
	denied   bool
	acquired []string
	released []string
}

func (l *fakeLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if l.denied {
		return false, nil
	}
	l.acquired = append(l.acquired, key)
	return true, nil
}

func (l *fakeLocker) Release(ctx context.Context, key string) error {
	l.released = append(l.released, key)
	return nil
}

type enqueueCall struct {
	postID int64
	delay  time.Duration
}

type fakeEnqueuer struct {
	calls   []enqueueCall
	failFor map[int64]error
}

func (e *fakeEnqueuer) EnqueuePublish(postID int64, delay time.Duration) error {
	if err := e.failFor[postID]; err != nil {
		return err
	}
	e.calls = append(e.calls, enqueueCall{postID: postID, delay: delay})
	return nil
}

type publishFixture struct {
	svc     *publishService
	posts   *fakePostRepo
	content *fakeContentRepo
	social  *fakeSocialAccountRepo
	locker  *fakeLocker
	enq     *fakeEnqueuer
}

func newPublishFixture(t *testing.T) *publishFixture {
	f := &publishFixture{
		posts:   newFakePostRepo(),
		content: newFakeContentRepo(),
		social:  newFakeSocialAccountRepo(),
		locker:  &fakeLocker{},
		enq:     &fakeEnqueuer{},
	}
	f.svc = &publishService{
		db:    testDB(t),
		pr:    f.posts,
		cr:    f.content,
		sar:   f.social,
		enq:   f.enq,
		guard: f.locker,
		now:   time.Now,
	}
	return f
}

func (f *publishFixture) approvedContent(userID int64) *models.Content {
	return f.content.add(&models.Content{
		UserID:          userID,
		Topic:           "mindfulness",
		FacebookCaption: "fb caption",
		TwitterCaption:  "tw caption",
		Status:          models.ContentStatusApproved,
	})
}

func (f *publishFixture) connect(userID int64, platform models.Platform) {
	f.social.add(&models.SocialAccount{
		UserID:      userID,
		Platform:    platform,
		IsConnected: true,
		IsActive:    true,
	})
}

func TestPublishRequiresPlatforms(t *testing.T) {
	f := newPublishFixture(t)
	content := f.approvedContent(1)

	_, err := f.svc.Publish(context.Background(), 1, content.ID, nil, nil)
	if !apperr.IsValidation(err) {
		t.Fatalf("error = %v, want validation", err)
	}
	if len(f.posts.posts) != 0 {
		t.Error("no rows may be created for an empty selection")
	}
}

func TestPublishRejectsPastSchedule(t *testing.T) {
	f := newPublishFixture(t)
	content := f.approvedContent(1)
	f.connect(1, models.PlatformFacebook)

	past := time.Now().Add(-time.Hour)
	_, err := f.svc.Publish(context.Background(), 1, content.ID, []string{"facebook"}, &past)
	if !apperr.IsValidation(err) {
		t.Fatalf("error = %v, want validation", err)
	}
	if len(f.posts.posts) != 0 {
		t.Error("no rows may be created for a past schedule")
	}
}

func TestPublishRejectsUnknownPlatform(t *testing.T) {
	f := newPublishFixture(t)
	content := f.approvedContent(1)

	_, err := f.svc.Publish(context.Background(), 1, content.ID, []string{"myspace"}, nil)
	if !apperr.IsValidation(err) {
		t.Fatalf("error = %v, want validation", err)
	}
}

func TestPublishRequiresApprovedContent(t *testing.T) {
	for _, status := range []string{
		models.ContentStatusDraft,
		models.ContentStatusPendingApproval,
		models.ContentStatusRejected,
		models.ContentStatusPublished,
	} {
		t.Run(status, func(t *testing.T) {
			f := newPublishFixture(t)
			content := f.content.add(&models.Content{UserID: 1, Status: status})
			f.connect(1, models.PlatformFacebook)

			_, err := f.svc.Publish(context.Background(), 1, content.ID, []string{"facebook"}, nil)
			if !apperr.IsInvalidState(err) {
				t.Fatalf("error = %v, want invalid state", err)
			}
			if len(f.posts.posts) != 0 {
				t.Error("no rows may be created for unapproved content")
			}
		})
	}
}

func TestPublishRefusedWhileInFlight(t *testing.T) {
	f := newPublishFixture(t)
	content := f.approvedContent(1)
	f.connect(1, models.PlatformFacebook)
	f.locker.denied = true

	_, err := f.svc.Publish(context.Background(), 1, content.ID, []string{"facebook"}, nil)
	if !apperr.IsDomain(err) {
		t.Fatalf("error = %v, want domain", err)
	}
	if len(f.posts.posts) != 0 {
		t.Error("a refused publish must not create rows")
	}
}

func TestPublishNamesDisconnectedPlatforms(t *testing.T) {
	f := newPublishFixture(t)
	content := f.approvedContent(1)
	f.connect(1, models.PlatformFacebook)

	_, err := f.svc.Publish(context.Background(), 1, content.ID, []string{"facebook", "twitter", "linkedin"}, nil)
	if !apperr.IsValidation(err) {
		t.Fatalf("error = %v, want validation", err)
	}
	msg := apperr.Message(err)
	if !strings.Contains(msg, "Twitter") || !strings.Contains(msg, "LinkedIn") {
		t.Errorf("message %q should name the disconnected platforms", msg)
	}
	if len(f.posts.posts) != 0 {
		t.Error("a partially connected selection must create zero rows")
	}
	if len(f.locker.released) != 1 {
		t.Error("the in-flight guard must be released on refusal")
	}
}

func TestPublishFansOutPerPlatform(t *testing.T) {
	f := newPublishFixture(t)
	content := f.approvedContent(1)
	f.connect(1, models.PlatformFacebook)
	f.connect(1, models.PlatformTwitter)

	posts, err := f.svc.Publish(context.Background(), 1, content.ID, []string{"facebook", "twitter"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("got %d posts, want 2", len(posts))
	}

	byPlatform := map[models.Platform]*models.Post{}
	for _, post := range posts {
		byPlatform[post.Platform] = post
		if post.Status != models.PostStatusPosting {
			t.Errorf("%s status = %q, want posting", post.Platform, post.Status)
		}
		if post.ID == 0 {
			t.Errorf("%s post has no id", post.Platform)
		}
	}
	if byPlatform[models.PlatformFacebook].Caption != "fb caption" {
		t.Errorf("facebook caption = %q", byPlatform[models.PlatformFacebook].Caption)
	}
	if byPlatform[models.PlatformTwitter].Caption != "tw caption" {
		t.Errorf("twitter caption = %q", byPlatform[models.PlatformTwitter].Caption)
	}

	if len(f.enq.calls) != 2 {
		t.Fatalf("got %d enqueues, want 2", len(f.enq.calls))
	}
	for _, call := range f.enq.calls {
		if call.delay != 0 {
			t.Errorf("immediate publish enqueued with delay %v", call.delay)
		}
	}
	if len(f.locker.released) != 1 {
		t.Error("guard must be released after a successful publish")
	}
}

func TestPublishScheduledDelaysDelivery(t *testing.T) {
	f := newPublishFixture(t)
	content := f.approvedContent(1)
	f.connect(1, models.PlatformLinkedIn)

	future := time.Now().Add(2 * time.Hour)
	posts, err := f.svc.Publish(context.Background(), 1, content.ID, []string{"linkedin"}, &future)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if posts[0].Status != models.PostStatusScheduled {
		t.Errorf("status = %q, want scheduled", posts[0].Status)
	}
	if posts[0].ScheduledFor == nil || !posts[0].ScheduledFor.Equal(future) {
		t.Errorf("scheduled_for = %v", posts[0].ScheduledFor)
	}
	if len(f.enq.calls) != 1 || f.enq.calls[0].delay <= time.Hour {
		t.Errorf("enqueue calls = %+v, want one with ~2h delay", f.enq.calls)
	}
}

func TestPublishEnqueueFailureMarksPostFailed(t *testing.T) {
	f := newPublishFixture(t)
	content := f.approvedContent(1)
	f.connect(1, models.PlatformFacebook)
	f.enq.failFor = map[int64]error{1: errors.New("redis down")}

	posts, err := f.svc.Publish(context.Background(), 1, content.ID, []string{"facebook"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored := f.posts.posts[posts[0].ID]
	if stored.Status != models.PostStatusFailed {
		t.Errorf("status = %q, want failed when enqueue is lost", stored.Status)
	}
	if stored.ErrorMessage == "" {
		t.Error("failed post should carry an error message")
	}
}

func TestRetryOnlyFromFailed(t *testing.T) {
	for _, status := range []string{
		models.PostStatusScheduled,
		models.PostStatusPosting,
		models.PostStatusPublished,
	} {
		t.Run(status, func(t *testing.T) {
			f := newPublishFixture(t)
			post := f.posts.add(&models.Post{UserID: 1, ContentID: 9, Platform: models.PlatformFacebook, Status: status})

			err := f.svc.Retry(context.Background(), 1, post.ID)
			if !apperr.IsInvalidState(err) {
				t.Fatalf("error = %v, want invalid state", err)
			}
			if f.posts.posts[post.ID].Status != status {
				t.Error("refused retry must leave the record unchanged")
			}
			if len(f.enq.calls) != 0 {
				t.Error("refused retry must not enqueue")
			}
		})
	}
}

func TestRetryRequeuesFailedPost(t *testing.T) {
	f := newPublishFixture(t)
	post := f.posts.add(&models.Post{
		UserID:       1,
		ContentID:    9,
		Platform:     models.PlatformFacebook,
		Status:       models.PostStatusFailed,
		ErrorMessage: "graph timeout",
	})

	if err := f.svc.Retry(context.Background(), 1, post.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored := f.posts.posts[post.ID]
	if stored.Status != models.PostStatusPosting {
		t.Errorf("status = %q, want posting", stored.Status)
	}
	if stored.ErrorMessage != "" {
		t.Errorf("error message = %q, want cleared", stored.ErrorMessage)
	}
	if len(f.enq.calls) != 1 || f.enq.calls[0].postID != post.ID {
		t.Errorf("enqueue calls = %+v", f.enq.calls)
	}
}
