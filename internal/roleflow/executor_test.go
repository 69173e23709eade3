package roleflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hitoshi/artspace/internal/model"
	"github.com/hitoshi/artspace/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	updateUserTypeFn func(ctx context.Context, id string, userType model.UserType) error
}

func (m *mockUserRepo) FindByID(_ context.Context, _ string) (*model.User, error)    { return nil, nil }
func (m *mockUserRepo) FindByEmail(_ context.Context, _ string) (*model.User, error) { return nil, nil }
func (m *mockUserRepo) Create(_ context.Context, _ *model.User) error                { return nil }
func (m *mockUserRepo) CreateWithIdentity(_ context.Context, _ *model.User, _ *model.Identity) error {
	return nil
}
func (m *mockUserRepo) UpdateProfile(_ context.Context, _, _, _ string) error { return nil }
func (m *mockUserRepo) UpdateUserType(ctx context.Context, id string, userType model.UserType) error {
	if m.updateUserTypeFn != nil {
		return m.updateUserTypeFn(ctx, id, userType)
	}
	return nil
}
func (m *mockUserRepo) UpdateProfileComplete(_ context.Context, _ string, _ bool) error { return nil }
func (m *mockUserRepo) DeleteByID(_ context.Context, _ string) error                    { return nil }

type mockArtistRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.ArtistProfile, error)
	upsertFn   func(ctx context.Context, profile *model.ArtistProfile) error
}

func (m *mockArtistRepo) FindByID(ctx context.Context, id string) (*model.ArtistProfile, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockArtistRepo) Upsert(ctx context.Context, profile *model.ArtistProfile) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, profile)
	}
	return nil
}
func (m *mockArtistRepo) ListWithProfiles(_ context.Context) ([]model.ArtistListing, error) {
	return nil, nil
}

type mockIntentRepo struct {
	consumeFn func(ctx context.Context, id string, now time.Time) (*model.SignupIntent, error)
}

func (m *mockIntentRepo) Create(_ context.Context, _ *model.SignupIntent) error { return nil }
func (m *mockIntentRepo) Consume(ctx context.Context, id string, now time.Time) (*model.SignupIntent, error) {
	if m.consumeFn != nil {
		return m.consumeFn(ctx, id, now)
	}
	return nil, nil
}

type mockInvalidator struct {
	invalidated []string
}

func (m *mockInvalidator) Invalidate(userID string) {
	m.invalidated = append(m.invalidated, userID)
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ repository.ArtistRepository = (*mockArtistRepo)(nil)
var _ repository.SignupIntentRepository = (*mockIntentRepo)(nil)
var _ SnapshotInvalidator = (*mockInvalidator)(nil)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- テスト ---

func TestApplyPendingRole_ConsumesIntentAndAppliesClientRole(t *testing.T) {
	ctx := context.Background()

	var updatedID string
	var updatedType model.UserType

	intents := &mockIntentRepo{
		consumeFn: func(_ context.Context, id string, _ time.Time) (*model.SignupIntent, error) {
			return &model.SignupIntent{ID: id, Role: model.UserTypeClient}, nil
		},
	}
	users := &mockUserRepo{
		updateUserTypeFn: func(_ context.Context, id string, userType model.UserType) error {
			updatedID = id
			updatedType = userType
			return nil
		},
	}

	e := NewExecutor(users, &mockArtistRepo{}, intents, &mockInvalidator{}, discardLogger())

	role, err := e.ApplyPendingRole(ctx, "user-1", "intent-1")
	if err != nil {
		t.Fatalf("ApplyPendingRole() error = %v", err)
	}

	if role != model.UserTypeClient {
		t.Errorf("applied role = %q, want %q", role, model.UserTypeClient)
	}
	if updatedID != "user-1" || updatedType != model.UserTypeClient {
		t.Errorf("UpdateUserType(%q, %q), want (user-1, client)", updatedID, updatedType)
	}
}

func TestApplyPendingRole_ArtistRole_CreatesEmptyArtistProfile(t *testing.T) {
	ctx := context.Background()

	var upserted *model.ArtistProfile

	intents := &mockIntentRepo{
		consumeFn: func(_ context.Context, id string, _ time.Time) (*model.SignupIntent, error) {
			return &model.SignupIntent{ID: id, Role: model.UserTypeArtist}, nil
		},
	}
	artists := &mockArtistRepo{
		upsertFn: func(_ context.Context, profile *model.ArtistProfile) error {
			upserted = profile
			return nil
		},
	}

	e := NewExecutor(&mockUserRepo{}, artists, intents, &mockInvalidator{}, discardLogger())

	role, err := e.ApplyPendingRole(ctx, "user-1", "intent-1")
	if err != nil {
		t.Fatalf("ApplyPendingRole() error = %v", err)
	}

	if role != model.UserTypeArtist {
		t.Errorf("applied role = %q, want %q", role, model.UserTypeArtist)
	}
	if upserted == nil {
		t.Fatal("expected empty artist profile to be created")
	}
	if upserted.ID != "user-1" {
		t.Errorf("profile ID = %q, want %q", upserted.ID, "user-1")
	}
	if upserted.IsComplete() {
		t.Error("freshly created artist profile should be incomplete")
	}
}

func TestApplyPendingRole_ArtistRole_ExistingProfileNotOverwritten(t *testing.T) {
	ctx := context.Background()

	intents := &mockIntentRepo{
		consumeFn: func(_ context.Context, id string, _ time.Time) (*model.SignupIntent, error) {
			return &model.SignupIntent{ID: id, Role: model.UserTypeArtist}, nil
		},
	}
	artists := &mockArtistRepo{
		findByIDFn: func(_ context.Context, id string) (*model.ArtistProfile, error) {
			return &model.ArtistProfile{ID: id, Specialty: "Mehendi"}, nil
		},
		upsertFn: func(_ context.Context, _ *model.ArtistProfile) error {
			t.Error("Upsert should not be called when a profile row already exists")
			return nil
		},
	}

	e := NewExecutor(&mockUserRepo{}, artists, intents, &mockInvalidator{}, discardLogger())

	if _, err := e.ApplyPendingRole(ctx, "user-1", "intent-1"); err != nil {
		t.Fatalf("ApplyPendingRole() error = %v", err)
	}
}

func TestApplyPendingRole_NotConsumable_ReturnsUnsetWithoutError(t *testing.T) {
	ctx := context.Background()

	intents := &mockIntentRepo{
		consumeFn: func(_ context.Context, _ string, _ time.Time) (*model.SignupIntent, error) {
			// 期限切れ・消費済み・存在しないintent
			return nil, nil
		},
	}
	users := &mockUserRepo{
		updateUserTypeFn: func(_ context.Context, _ string, _ model.UserType) error {
			t.Error("UpdateUserType should not be called for a non-consumable intent")
			return nil
		},
	}

	e := NewExecutor(users, &mockArtistRepo{}, intents, &mockInvalidator{}, discardLogger())

	role, err := e.ApplyPendingRole(ctx, "user-1", "intent-1")
	if err != nil {
		t.Fatalf("ApplyPendingRole() error = %v", err)
	}
	if role != model.UserTypeUnset {
		t.Errorf("role = %q, want unset", role)
	}
}

func TestApplyPendingRole_IntentWithoutRole_ReturnsUnset(t *testing.T) {
	ctx := context.Background()

	intents := &mockIntentRepo{
		consumeFn: func(_ context.Context, id string, _ time.Time) (*model.SignupIntent, error) {
			return &model.SignupIntent{ID: id, Role: model.UserTypeUnset}, nil
		},
	}

	e := NewExecutor(&mockUserRepo{}, &mockArtistRepo{}, intents, &mockInvalidator{}, discardLogger())

	role, err := e.ApplyPendingRole(ctx, "user-1", "intent-1")
	if err != nil {
		t.Fatalf("ApplyPendingRole() error = %v", err)
	}
	if role != model.UserTypeUnset {
		t.Errorf("role = %q, want unset", role)
	}
}

// ロール確定後は古いスナップショットが残らないこと。キャッシュに未設定ロールの
// スナップショットが残ったままだと、解決が再びロール選択画面へ誘導してしまう。
func TestApplyPendingRole_InvalidatesSnapshotAfterRoleWrite(t *testing.T) {
	ctx := context.Background()

	intents := &mockIntentRepo{
		consumeFn: func(_ context.Context, id string, _ time.Time) (*model.SignupIntent, error) {
			return &model.SignupIntent{ID: id, Role: model.UserTypeArtist}, nil
		},
	}
	snapshots := &mockInvalidator{}

	e := NewExecutor(&mockUserRepo{}, &mockArtistRepo{}, intents, snapshots, discardLogger())

	if _, err := e.ApplyPendingRole(ctx, "user-1", "intent-1"); err != nil {
		t.Fatalf("ApplyPendingRole() error = %v", err)
	}

	if len(snapshots.invalidated) != 1 || snapshots.invalidated[0] != "user-1" {
		t.Errorf("invalidated = %v, want [user-1]", snapshots.invalidated)
	}
}

func TestApplyPendingRole_NotConsumable_DoesNotInvalidateSnapshot(t *testing.T) {
	ctx := context.Background()

	snapshots := &mockInvalidator{}

	e := NewExecutor(&mockUserRepo{}, &mockArtistRepo{}, &mockIntentRepo{}, snapshots, discardLogger())

	if _, err := e.ApplyPendingRole(ctx, "user-1", "intent-1"); err != nil {
		t.Fatalf("ApplyPendingRole() error = %v", err)
	}
	if len(snapshots.invalidated) != 0 {
		t.Errorf("invalidated = %v, want none when no role was applied", snapshots.invalidated)
	}
}

func TestApplyPendingRole_UpdateFails_ReturnsError(t *testing.T) {
	ctx := context.Background()

	intents := &mockIntentRepo{
		consumeFn: func(_ context.Context, id string, _ time.Time) (*model.SignupIntent, error) {
			return &model.SignupIntent{ID: id, Role: model.UserTypeClient}, nil
		},
	}
	users := &mockUserRepo{
		updateUserTypeFn: func(_ context.Context, _ string, _ model.UserType) error {
			return errors.New("db write failed")
		},
	}

	e := NewExecutor(users, &mockArtistRepo{}, intents, &mockInvalidator{}, discardLogger())

	role, err := e.ApplyPendingRole(ctx, "user-1", "intent-1")
	if err == nil {
		t.Fatal("expected error when role write fails")
	}
	if role != model.UserTypeUnset {
		t.Errorf("role = %q, want unset on write failure", role)
	}
}
