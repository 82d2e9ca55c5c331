package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hitoshi/ichiba/internal/model"
	"github.com/hitoshi/ichiba/internal/repository"
)

// mockStoreRepo はStoreRepositoryのモック。
type mockStoreRepo struct {
	findByIDFn              func(ctx context.Context, id string) (*model.Store, error)
	findByUserIDFn          func(ctx context.Context, userID string) (*model.Store, error)
	findByActivationTokenFn func(ctx context.Context, token string) (*model.Store, error)
	createFn                func(ctx context.Context, store *model.Store) error
	updateProfileFn         func(ctx context.Context, store *model.Store) error
	updateStatusFn          func(ctx context.Context, id string, status model.StoreStatus, token *string, expires *time.Time) error
	updateLogoFn            func(ctx context.Context, id string, logoData []byte, logoMime string) error
	listByStatusFn          func(ctx context.Context, status model.StoreStatus) ([]*model.Store, error)
	countByStatusFn         func(ctx context.Context) (map[model.StoreStatus]int, error)
}

func (m *mockStoreRepo) FindByID(ctx context.Context, id string) (*model.Store, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockStoreRepo) FindByUserID(ctx context.Context, userID string) (*model.Store, error) {
	if m.findByUserIDFn != nil {
		return m.findByUserIDFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockStoreRepo) FindByActivationToken(ctx context.Context, token string) (*model.Store, error) {
	if m.findByActivationTokenFn != nil {
		return m.findByActivationTokenFn(ctx, token)
	}
	return nil, nil
}

func (m *mockStoreRepo) Create(ctx context.Context, store *model.Store) error {
	if m.createFn != nil {
		return m.createFn(ctx, store)
	}
	return nil
}

func (m *mockStoreRepo) UpdateProfile(ctx context.Context, store *model.Store) error {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, store)
	}
	return nil
}

func (m *mockStoreRepo) UpdateStatus(ctx context.Context, id string, status model.StoreStatus, token *string, expires *time.Time) error {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, status, token, expires)
	}
	return nil
}

func (m *mockStoreRepo) UpdateLogo(ctx context.Context, id string, logoData []byte, logoMime string) error {
	if m.updateLogoFn != nil {
		return m.updateLogoFn(ctx, id, logoData, logoMime)
	}
	return nil
}

func (m *mockStoreRepo) ListByStatus(ctx context.Context, status model.StoreStatus) ([]*model.Store, error) {
	if m.listByStatusFn != nil {
		return m.listByStatusFn(ctx, status)
	}
	return nil, nil
}

func (m *mockStoreRepo) CountByStatus(ctx context.Context) (map[model.StoreStatus]int, error) {
	if m.countByStatusFn != nil {
		return m.countByStatusFn(ctx)
	}
	return nil, nil
}

// mockUserRepo はUserRepositoryのモック。
type mockUserRepo struct {
	updateRoleFn func(ctx context.Context, id string, role model.Role) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	return nil
}

func (m *mockUserRepo) UpdateRole(ctx context.Context, id string, role model.Role) error {
	if m.updateRoleFn != nil {
		return m.updateRoleFn(ctx, id, role)
	}
	return nil
}

// mockNotifier は通知メールのモック。
type mockNotifier struct {
	activationTo    string
	activationToken string
	activationCount int
	rejectionTo     string
	rejectionCount  int
	sendErr         error
}

func (m *mockNotifier) SendActivation(ctx context.Context, to, storeName, token string) error {
	m.activationTo = to
	m.activationToken = token
	m.activationCount++
	return m.sendErr
}

func (m *mockNotifier) SendRejection(ctx context.Context, to, storeName string) error {
	m.rejectionTo = to
	m.rejectionCount++
	return m.sendErr
}

// mockLogoFetcher はロゴ取得のモック。
type mockLogoFetcher struct {
	data     []byte
	mimeType string
	siteURL  string
}

func (m *mockLogoFetcher) FetchLogo(ctx context.Context, logoURL string) ([]byte, string, error) {
	return m.data, m.mimeType, nil
}

func (m *mockLogoFetcher) FetchLogoForSite(ctx context.Context, siteURL string) ([]byte, string, error) {
	m.siteURL = siteURL
	return m.data, m.mimeType, nil
}

// mockURLValidator はURL検証のモック。
type mockURLValidator struct {
	blockAll bool
}

func (m *mockURLValidator) ValidateURL(rawURL string) error {
	if m.blockAll {
		return fmt.Errorf("blocked URL: %s", rawURL)
	}
	return nil
}

var _ repository.StoreRepository = (*mockStoreRepo)(nil)
var _ repository.UserRepository = (*mockUserRepo)(nil)

func newTestService(storeRepo *mockStoreRepo, userRepo *mockUserRepo, notifier *mockNotifier) *Service {
	return NewService(storeRepo, userRepo, notifier, nil, &mockURLValidator{}, 24*time.Hour)
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func assertAPIErrorCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T: %v", err, err)
	}
	if apiErr.Code != wantCode {
		t.Errorf("error code = %q, want %q", apiErr.Code, wantCode)
	}
}

func TestService_Register_CreatesPendingStore(t *testing.T) {
	var created *model.Store
	var roleUserID string
	var newRole model.Role

	storeRepo := &mockStoreRepo{
		createFn: func(ctx context.Context, store *model.Store) error {
			created = store
			return nil
		},
	}
	userRepo := &mockUserRepo{
		updateRoleFn: func(ctx context.Context, id string, role model.Role) error {
			roleUserID = id
			newRole = role
			return nil
		},
	}

	svc := newTestService(storeRepo, userRepo, &mockNotifier{})

	store, err := svc.Register(context.Background(), "user-1", "テスト商店", "説明", "https://shop.example.com", "pic@example.com")
	if err != nil {
		t.Fatalf("Register returned unexpected error: %v", err)
	}

	if store.Status != model.StoreStatusPending {
		t.Errorf("status = %q, want %q", store.Status, model.StoreStatusPending)
	}
	if store.ActivationToken != nil || store.ActivationExpires != nil {
		t.Error("new store should not have an activation token")
	}
	if created == nil {
		t.Fatal("store should be persisted")
	}
	if created.ID == "" {
		t.Error("store ID should be generated")
	}
	if roleUserID != "user-1" || newRole != model.RoleSeller {
		t.Errorf("role update = (%q, %q), want (%q, %q)", roleUserID, newRole, "user-1", model.RoleSeller)
	}
}

func TestService_Register_Validation(t *testing.T) {
	tests := []struct {
		name       string
		storeName  string
		websiteURL string
		picEmail   string
		blockURL   bool
		wantCode   string
	}{
		{
			name:      "empty store name",
			storeName: "  ",
			picEmail:  "pic@example.com",
			wantCode:  model.ErrCodeInvalidInput,
		},
		{
			name:      "invalid PIC email",
			storeName: "テスト商店",
			picEmail:  "not-an-email",
			wantCode:  model.ErrCodeInvalidInput,
		},
		{
			name:       "blocked website URL",
			storeName:  "テスト商店",
			websiteURL: "http://169.254.169.254/",
			picEmail:   "pic@example.com",
			blockURL:   true,
			wantCode:   model.ErrCodeInvalidURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&mockStoreRepo{}, &mockUserRepo{}, &mockNotifier{}, nil, &mockURLValidator{blockAll: tt.blockURL}, 24*time.Hour)

			_, err := svc.Register(context.Background(), "user-1", tt.storeName, "", tt.websiteURL, tt.picEmail)
			if err == nil {
				t.Fatal("expected error")
			}
			assertAPIErrorCode(t, err, tt.wantCode)
		})
	}
}

func TestService_Register_DuplicateStore(t *testing.T) {
	storeRepo := &mockStoreRepo{
		findByUserIDFn: func(ctx context.Context, userID string) (*model.Store, error) {
			return &model.Store{ID: "store-1", UserID: userID}, nil
		},
	}

	svc := newTestService(storeRepo, &mockUserRepo{}, &mockNotifier{})

	_, err := svc.Register(context.Background(), "user-1", "テスト商店", "", "", "pic@example.com")
	if err == nil {
		t.Fatal("expected error for duplicate store")
	}
	assertAPIErrorCode(t, err, model.ErrCodeDuplicateStore)
}

// TestService_UpdateStatus_ApprovePending は承認時にトークン・期限の発行と
// メール送信が行われることを検証する。
func TestService_UpdateStatus_ApprovePending(t *testing.T) {
	var gotStatus model.StoreStatus
	var gotToken *string
	var gotExpires *time.Time

	storeRepo := &mockStoreRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Store, error) {
			return &model.Store{
				ID:       id,
				Name:     "テスト商店",
				PICEmail: "pic@example.com",
				Status:   model.StoreStatusPending,
			}, nil
		},
		updateStatusFn: func(ctx context.Context, id string, status model.StoreStatus, token *string, expires *time.Time) error {
			gotStatus = status
			gotToken = token
			gotExpires = expires
			return nil
		},
	}
	notifier := &mockNotifier{}

	svc := newTestService(storeRepo, &mockUserRepo{}, notifier)

	before := time.Now()
	store, err := svc.UpdateStatus(context.Background(), "store-1", model.StoreStatusAwaitingActivation)
	if err != nil {
		t.Fatalf("UpdateStatus returned unexpected error: %v", err)
	}

	if gotStatus != model.StoreStatusAwaitingActivation {
		t.Errorf("persisted status = %q, want %q", gotStatus, model.StoreStatusAwaitingActivation)
	}
	if gotToken == nil || *gotToken == "" {
		t.Fatal("activation token should be set")
	}
	if len(*gotToken) != activationTokenBytes*2 {
		t.Errorf("token length = %d, want %d", len(*gotToken), activationTokenBytes*2)
	}
	if gotExpires == nil {
		t.Fatal("activation expiry should be set")
	}
	// 期限は now + 24h 付近であること
	wantExpiry := before.Add(24 * time.Hour)
	if gotExpires.Before(wantExpiry.Add(-time.Minute)) || gotExpires.After(wantExpiry.Add(time.Minute)) {
		t.Errorf("expiry = %v, want around %v", gotExpires, wantExpiry)
	}

	if notifier.activationCount != 1 {
		t.Errorf("activation mail count = %d, want 1", notifier.activationCount)
	}
	if notifier.activationTo != "pic@example.com" {
		t.Errorf("activation mail to = %q, want %q", notifier.activationTo, "pic@example.com")
	}
	if notifier.activationToken != *gotToken {
		t.Error("mail should carry the persisted token")
	}

	if store.Status != model.StoreStatusAwaitingActivation {
		t.Errorf("returned status = %q, want %q", store.Status, model.StoreStatusAwaitingActivation)
	}
}

// TestService_UpdateStatus_MailFailureDoesNotRollback は
// メール送信失敗が状態変更を巻き戻さないことを検証する。
func TestService_UpdateStatus_MailFailureDoesNotRollback(t *testing.T) {
	persisted := false
	storeRepo := &mockStoreRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Store, error) {
			return &model.Store{ID: id, PICEmail: "pic@example.com", Status: model.StoreStatusPending}, nil
		},
		updateStatusFn: func(ctx context.Context, id string, status model.StoreStatus, token *string, expires *time.Time) error {
			persisted = true
			return nil
		},
	}
	notifier := &mockNotifier{sendErr: errors.New("smtp unreachable")}

	svc := newTestService(storeRepo, &mockUserRepo{}, notifier)

	store, err := svc.UpdateStatus(context.Background(), "store-1", model.StoreStatusAwaitingActivation)
	if err != nil {
		t.Fatalf("UpdateStatus should not fail on mail error, got: %v", err)
	}
	if !persisted {
		t.Error("status change should be persisted")
	}
	if store.Status != model.StoreStatusAwaitingActivation {
		t.Errorf("status = %q, want %q", store.Status, model.StoreStatusAwaitingActivation)
	}
}

func TestService_UpdateStatus_Reject(t *testing.T) {
	token := "issued-token"
	expires := time.Now().Add(time.Hour)

	tests := []struct {
		name        string
		from        model.StoreStatus
		token       *string
		expires     *time.Time
		wantToken   *string
		wantExpires *time.Time
	}{
		{"from pending", model.StoreStatusPending, nil, nil, nil, nil},
		{"from awaiting_activation", model.StoreStatusAwaitingActivation, &token, &expires, &token, &expires},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotStatus model.StoreStatus
			var gotToken *string
			var gotExpires *time.Time

			storeRepo := &mockStoreRepo{
				findByIDFn: func(ctx context.Context, id string) (*model.Store, error) {
					return &model.Store{
						ID:                id,
						PICEmail:          "pic@example.com",
						Status:            tt.from,
						ActivationToken:   tt.token,
						ActivationExpires: tt.expires,
					}, nil
				},
				updateStatusFn: func(ctx context.Context, id string, status model.StoreStatus, token *string, expires *time.Time) error {
					gotStatus = status
					gotToken = token
					gotExpires = expires
					return nil
				},
			}
			notifier := &mockNotifier{}

			svc := newTestService(storeRepo, &mockUserRepo{}, notifier)

			store, err := svc.UpdateStatus(context.Background(), "store-1", model.StoreStatusRejected)
			if err != nil {
				t.Fatalf("UpdateStatus returned unexpected error: %v", err)
			}

			if gotStatus != model.StoreStatusRejected {
				t.Errorf("persisted status = %q, want %q", gotStatus, model.StoreStatusRejected)
			}
			// 却下は有効化フィールドに触れない（発行済みトークンはそのまま残る）
			if gotToken != tt.wantToken {
				t.Errorf("persisted token = %v, want %v", gotToken, tt.wantToken)
			}
			if gotExpires != tt.wantExpires {
				t.Errorf("persisted expires = %v, want %v", gotExpires, tt.wantExpires)
			}
			if notifier.rejectionCount != 1 {
				t.Errorf("rejection mail count = %d, want 1", notifier.rejectionCount)
			}
			if store.Status != model.StoreStatusRejected {
				t.Errorf("returned status = %q, want %q", store.Status, model.StoreStatusRejected)
			}
		})
	}
}

// TestService_UpdateStatus_Reject_KeepsActivationFields は発行済みトークンを持つ
// awaiting_activation店舗の却下で、トークンと期限がNULLに上書きされないことを検証する。
func TestService_UpdateStatus_Reject_KeepsActivationFields(t *testing.T) {
	token := "tok"
	expires := time.Now().Add(time.Hour)

	persisted := &model.Store{
		ID:                "store-1",
		PICEmail:          "pic@example.com",
		Status:            model.StoreStatusAwaitingActivation,
		ActivationToken:   &token,
		ActivationExpires: &expires,
	}
	storeRepo := &mockStoreRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Store, error) {
			return persisted, nil
		},
		updateStatusFn: func(ctx context.Context, id string, status model.StoreStatus, token *string, expires *time.Time) error {
			persisted.Status = status
			persisted.ActivationToken = token
			persisted.ActivationExpires = expires
			return nil
		},
	}

	svc := newTestService(storeRepo, &mockUserRepo{}, &mockNotifier{})

	if _, err := svc.UpdateStatus(context.Background(), "store-1", model.StoreStatusRejected); err != nil {
		t.Fatalf("UpdateStatus returned unexpected error: %v", err)
	}

	if persisted.ActivationToken == nil || *persisted.ActivationToken != "tok" {
		t.Errorf("activation token = %v, want %q preserved", persisted.ActivationToken, "tok")
	}
	if persisted.ActivationExpires == nil || !persisted.ActivationExpires.Equal(expires) {
		t.Errorf("activation expires = %v, want %v preserved", persisted.ActivationExpires, expires)
	}
}

// TestService_UpdateStatus_InvalidTransitions は不正な状態遷移が拒否されることを検証する。
func TestService_UpdateStatus_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name      string
		from      model.StoreStatus
		requested model.StoreStatus
	}{
		{"pending to active directly", model.StoreStatusPending, model.StoreStatusActive},
		{"awaiting to active directly", model.StoreStatusAwaitingActivation, model.StoreStatusActive},
		{"active to rejected", model.StoreStatusActive, model.StoreStatusRejected},
		{"rejected to awaiting", model.StoreStatusRejected, model.StoreStatusAwaitingActivation},
		{"pending to pending", model.StoreStatusPending, model.StoreStatusPending},
		{"unknown status", model.StoreStatusPending, model.StoreStatus("suspended")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storeRepo := &mockStoreRepo{
				findByIDFn: func(ctx context.Context, id string) (*model.Store, error) {
					return &model.Store{ID: id, Status: tt.from}, nil
				},
				updateStatusFn: func(ctx context.Context, id string, status model.StoreStatus, token *string, expires *time.Time) error {
					t.Fatal("UpdateStatus should not be persisted for invalid transitions")
					return nil
				},
			}

			svc := newTestService(storeRepo, &mockUserRepo{}, &mockNotifier{})

			_, err := svc.UpdateStatus(context.Background(), "store-1", tt.requested)
			if err == nil {
				t.Fatal("expected error")
			}
			assertAPIErrorCode(t, err, model.ErrCodeInvalidStatusTransition)
		})
	}
}

func TestService_UpdateStatus_StoreNotFound(t *testing.T) {
	svc := newTestService(&mockStoreRepo{}, &mockUserRepo{}, &mockNotifier{})

	_, err := svc.UpdateStatus(context.Background(), "missing", model.StoreStatusRejected)
	if err == nil {
		t.Fatal("expected error")
	}
	assertAPIErrorCode(t, err, model.ErrCodeStoreNotFound)
}

func TestService_UpdateStatus_PersistenceFailure(t *testing.T) {
	storeRepo := &mockStoreRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Store, error) {
			return &model.Store{ID: id, PICEmail: "pic@example.com", Status: model.StoreStatusPending}, nil
		},
		updateStatusFn: func(ctx context.Context, id string, status model.StoreStatus, token *string, expires *time.Time) error {
			return errors.New("connection reset")
		},
	}
	notifier := &mockNotifier{}

	svc := newTestService(storeRepo, &mockUserRepo{}, notifier)

	_, err := svc.UpdateStatus(context.Background(), "store-1", model.StoreStatusAwaitingActivation)
	if err == nil {
		t.Fatal("expected error on persistence failure")
	}
	// 永続化に失敗した場合はメールを送らない
	if notifier.activationCount != 0 {
		t.Errorf("activation mail count = %d, want 0", notifier.activationCount)
	}
}

// TestService_ResendActivation_IssuesNewToken は再送時に新しいトークンが発行され、
// 最後に発行されたトークンのみが永続化されることを検証する。
func TestService_ResendActivation_IssuesNewToken(t *testing.T) {
	var persistedToken string

	storeRepo := &mockStoreRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Store, error) {
			return &model.Store{
				ID:                id,
				PICEmail:          "pic@example.com",
				Status:            model.StoreStatusAwaitingActivation,
				ActivationToken:   strPtr("old-token"),
				ActivationExpires: timePtr(time.Now().Add(-time.Hour)),
			}, nil
		},
		updateStatusFn: func(ctx context.Context, id string, status model.StoreStatus, token *string, expires *time.Time) error {
			persistedToken = *token
			return nil
		},
	}
	notifier := &mockNotifier{}

	svc := newTestService(storeRepo, &mockUserRepo{}, notifier)

	store, err := svc.ResendActivation(context.Background(), "store-1")
	if err != nil {
		t.Fatalf("ResendActivation returned unexpected error: %v", err)
	}

	if persistedToken == "" || persistedToken == "old-token" {
		t.Errorf("a fresh token should be persisted, got %q", persistedToken)
	}
	if notifier.activationToken != persistedToken {
		t.Error("mail should carry the most recently persisted token")
	}
	if store.ActivationToken == nil || *store.ActivationToken != persistedToken {
		t.Error("returned store should carry the new token")
	}
}

func TestService_ResendActivation_RequiresAwaitingActivation(t *testing.T) {
	for _, status := range []model.StoreStatus{
		model.StoreStatusPending,
		model.StoreStatusActive,
		model.StoreStatusRejected,
	} {
		t.Run(string(status), func(t *testing.T) {
			storeRepo := &mockStoreRepo{
				findByIDFn: func(ctx context.Context, id string) (*model.Store, error) {
					return &model.Store{ID: id, Status: status}, nil
				},
			}

			svc := newTestService(storeRepo, &mockUserRepo{}, &mockNotifier{})

			_, err := svc.ResendActivation(context.Background(), "store-1")
			if err == nil {
				t.Fatal("expected error")
			}
			assertAPIErrorCode(t, err, model.ErrCodeInvalidStatusTransition)
		})
	}
}

// TestService_Activate_Success は有効なトークンで店舗がactiveになり、
// トークンと期限がクリアされることを検証する。
func TestService_Activate_Success(t *testing.T) {
	var gotStatus model.StoreStatus
	var gotToken *string
	var gotExpires *time.Time

	storeRepo := &mockStoreRepo{
		findByActivationTokenFn: func(ctx context.Context, token string) (*model.Store, error) {
			if token != "valid-token" {
				return nil, nil
			}
			return &model.Store{
				ID:                "store-1",
				Status:            model.StoreStatusAwaitingActivation,
				ActivationToken:   strPtr(token),
				ActivationExpires: timePtr(time.Now().Add(time.Hour)),
			}, nil
		},
		updateStatusFn: func(ctx context.Context, id string, status model.StoreStatus, token *string, expires *time.Time) error {
			gotStatus = status
			gotToken = token
			gotExpires = expires
			return nil
		},
	}

	svc := newTestService(storeRepo, &mockUserRepo{}, &mockNotifier{})

	result, store, err := svc.Activate(context.Background(), "valid-token")
	if err != nil {
		t.Fatalf("Activate returned unexpected error: %v", err)
	}
	if result != model.ActivationSuccess {
		t.Errorf("result = %q, want %q", result, model.ActivationSuccess)
	}
	if gotStatus != model.StoreStatusActive {
		t.Errorf("persisted status = %q, want %q", gotStatus, model.StoreStatusActive)
	}
	// トークンと期限は両方クリアされること
	if gotToken != nil || gotExpires != nil {
		t.Error("activation token and expiry should be cleared")
	}
	if store.Status != model.StoreStatusActive {
		t.Errorf("returned status = %q, want %q", store.Status, model.StoreStatusActive)
	}
	if store.ActivationToken != nil || store.ActivationExpires != nil {
		t.Error("returned store should not carry activation fields")
	}
}

// TestService_Activate_Expired は期限切れトークンでexpiredが返り、
// 状態もトークンも変更されないことを検証する。
func TestService_Activate_Expired(t *testing.T) {
	storeRepo := &mockStoreRepo{
		findByActivationTokenFn: func(ctx context.Context, token string) (*model.Store, error) {
			return &model.Store{
				ID:                "store-1",
				Status:            model.StoreStatusAwaitingActivation,
				ActivationToken:   strPtr(token),
				ActivationExpires: timePtr(time.Now().Add(-time.Second)),
			}, nil
		},
		updateStatusFn: func(ctx context.Context, id string, status model.StoreStatus, token *string, expires *time.Time) error {
			t.Fatal("expired token should not mutate state")
			return nil
		},
	}

	svc := newTestService(storeRepo, &mockUserRepo{}, &mockNotifier{})

	result, store, err := svc.Activate(context.Background(), "expired-token")
	if err != nil {
		t.Fatalf("Activate returned unexpected error: %v", err)
	}
	if result != model.ActivationExpired {
		t.Errorf("result = %q, want %q", result, model.ActivationExpired)
	}
	// 期限切れではトークンを消さない（再発行で回復可能にする）
	if store.ActivationToken == nil {
		t.Error("expired token should not be cleared")
	}
	if store.Status != model.StoreStatusAwaitingActivation {
		t.Errorf("status = %q, want %q", store.Status, model.StoreStatusAwaitingActivation)
	}
}

// TestService_Activate_ExpiryBoundary は期限ちょうどのトークンが有効であることを検証する。
// 期限判定は厳密に now > expiry であり、等しい場合は期限内として扱う。
func TestService_Activate_ExpiryBoundary(t *testing.T) {
	fixedNow := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	storeRepo := &mockStoreRepo{
		findByActivationTokenFn: func(ctx context.Context, token string) (*model.Store, error) {
			return &model.Store{
				ID:                "store-1",
				Status:            model.StoreStatusAwaitingActivation,
				ActivationToken:   strPtr(token),
				ActivationExpires: timePtr(fixedNow),
			}, nil
		},
	}

	svc := newTestService(storeRepo, &mockUserRepo{}, &mockNotifier{})
	svc.now = func() time.Time { return fixedNow }

	result, _, err := svc.Activate(context.Background(), "boundary-token")
	if err != nil {
		t.Fatalf("Activate returned unexpected error: %v", err)
	}
	if result != model.ActivationSuccess {
		t.Errorf("result = %q, want %q", result, model.ActivationSuccess)
	}

	// 1ナノ秒でも過ぎれば期限切れ
	svc.now = func() time.Time { return fixedNow.Add(time.Nanosecond) }
	result, _, err = svc.Activate(context.Background(), "boundary-token")
	if err != nil {
		t.Fatalf("Activate returned unexpected error: %v", err)
	}
	if result != model.ActivationExpired {
		t.Errorf("result just past expiry = %q, want %q", result, model.ActivationExpired)
	}
}

// TestService_Activate_Invalid は一致する店舗がないトークンでinvalidが返ることを検証する。
func TestService_Activate_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"unknown token", "garbage"},
		{"empty token", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storeRepo := &mockStoreRepo{
				updateStatusFn: func(ctx context.Context, id string, status model.StoreStatus, token *string, expires *time.Time) error {
					t.Fatal("invalid token should not mutate state")
					return nil
				},
			}

			svc := newTestService(storeRepo, &mockUserRepo{}, &mockNotifier{})

			result, store, err := svc.Activate(context.Background(), tt.token)
			if err != nil {
				t.Fatalf("Activate returned unexpected error: %v", err)
			}
			if result != model.ActivationInvalid {
				t.Errorf("result = %q, want %q", result, model.ActivationInvalid)
			}
			if store != nil {
				t.Error("no store should be returned for invalid token")
			}
		})
	}
}

// TestService_Activate_SingleUse は消費済みトークン（active店舗に一致行なし）の
// 再送信がinvalidになることを検証する。
func TestService_Activate_SingleUse(t *testing.T) {
	consumed := false
	storeRepo := &mockStoreRepo{
		findByActivationTokenFn: func(ctx context.Context, token string) (*model.Store, error) {
			if consumed {
				// 有効化でトークンがクリアされた後は一致する行が存在しない
				return nil, nil
			}
			return &model.Store{
				ID:                "store-1",
				Status:            model.StoreStatusAwaitingActivation,
				ActivationToken:   strPtr(token),
				ActivationExpires: timePtr(time.Now().Add(time.Hour)),
			}, nil
		},
		updateStatusFn: func(ctx context.Context, id string, status model.StoreStatus, token *string, expires *time.Time) error {
			consumed = true
			return nil
		},
	}

	svc := newTestService(storeRepo, &mockUserRepo{}, &mockNotifier{})

	result, _, err := svc.Activate(context.Background(), "one-shot-token")
	if err != nil {
		t.Fatalf("first Activate returned unexpected error: %v", err)
	}
	if result != model.ActivationSuccess {
		t.Fatalf("first result = %q, want %q", result, model.ActivationSuccess)
	}

	result, _, err = svc.Activate(context.Background(), "one-shot-token")
	if err != nil {
		t.Fatalf("second Activate returned unexpected error: %v", err)
	}
	if result != model.ActivationInvalid {
		t.Errorf("second result = %q, want %q", result, model.ActivationInvalid)
	}
}

// TestService_Activate_PersistenceFailure は永続化失敗時にerrorが返ることを検証する。
func TestService_Activate_PersistenceFailure(t *testing.T) {
	storeRepo := &mockStoreRepo{
		findByActivationTokenFn: func(ctx context.Context, token string) (*model.Store, error) {
			return &model.Store{
				ID:                "store-1",
				Status:            model.StoreStatusAwaitingActivation,
				ActivationToken:   strPtr(token),
				ActivationExpires: timePtr(time.Now().Add(time.Hour)),
			}, nil
		},
		updateStatusFn: func(ctx context.Context, id string, status model.StoreStatus, token *string, expires *time.Time) error {
			return errors.New("connection reset")
		},
	}

	svc := newTestService(storeRepo, &mockUserRepo{}, &mockNotifier{})

	result, _, err := svc.Activate(context.Background(), "valid-token")
	if err == nil {
		t.Fatal("expected error on persistence failure")
	}
	if result != model.ActivationError {
		t.Errorf("result = %q, want %q", result, model.ActivationError)
	}
}

// TestService_Activate_FetchesLogo は有効化成功時に店舗サイトからロゴを取得して
// 保存することを検証する。
func TestService_Activate_FetchesLogo(t *testing.T) {
	var savedLogo []byte
	var savedMime string

	storeRepo := &mockStoreRepo{
		findByActivationTokenFn: func(ctx context.Context, token string) (*model.Store, error) {
			return &model.Store{
				ID:                "store-1",
				WebsiteURL:        "https://shop.example.com",
				Status:            model.StoreStatusAwaitingActivation,
				ActivationToken:   strPtr(token),
				ActivationExpires: timePtr(time.Now().Add(time.Hour)),
			}, nil
		},
		updateLogoFn: func(ctx context.Context, id string, logoData []byte, logoMime string) error {
			savedLogo = logoData
			savedMime = logoMime
			return nil
		},
	}
	fetcher := &mockLogoFetcher{data: []byte{0x89, 0x50}, mimeType: "image/png"}

	svc := NewService(storeRepo, &mockUserRepo{}, &mockNotifier{}, fetcher, &mockURLValidator{}, 24*time.Hour)

	result, store, err := svc.Activate(context.Background(), "valid-token")
	if err != nil {
		t.Fatalf("Activate returned unexpected error: %v", err)
	}
	if result != model.ActivationSuccess {
		t.Fatalf("result = %q, want %q", result, model.ActivationSuccess)
	}
	if fetcher.siteURL != "https://shop.example.com" {
		t.Errorf("fetch site URL = %q, want %q", fetcher.siteURL, "https://shop.example.com")
	}
	if len(savedLogo) == 0 || savedMime != "image/png" {
		t.Errorf("logo should be saved, got (%d bytes, %q)", len(savedLogo), savedMime)
	}
	if store.LogoMime != "image/png" {
		t.Errorf("returned store logo MIME = %q, want %q", store.LogoMime, "image/png")
	}
}

func TestService_GetStoreByUser_NotFound(t *testing.T) {
	svc := newTestService(&mockStoreRepo{}, &mockUserRepo{}, &mockNotifier{})

	_, err := svc.GetStoreByUser(context.Background(), "user-1")
	if err == nil {
		t.Fatal("expected error")
	}
	assertAPIErrorCode(t, err, model.ErrCodeStoreNotFound)
}

func TestService_UpdateProfile(t *testing.T) {
	var updated *model.Store
	storeRepo := &mockStoreRepo{
		findByUserIDFn: func(ctx context.Context, userID string) (*model.Store, error) {
			return &model.Store{ID: "store-1", UserID: userID, Name: "旧店名", Status: model.StoreStatusActive}, nil
		},
		updateProfileFn: func(ctx context.Context, store *model.Store) error {
			updated = store
			return nil
		},
	}

	svc := newTestService(storeRepo, &mockUserRepo{}, &mockNotifier{})

	store, err := svc.UpdateProfile(context.Background(), "user-1", "新店名", "新しい説明", "https://shop.example.com", "pic@example.com")
	if err != nil {
		t.Fatalf("UpdateProfile returned unexpected error: %v", err)
	}
	if updated == nil {
		t.Fatal("profile should be persisted")
	}
	if store.Name != "新店名" {
		t.Errorf("name = %q, want %q", store.Name, "新店名")
	}
	if store.PICEmail != "pic@example.com" {
		t.Errorf("pic email = %q, want %q", store.PICEmail, "pic@example.com")
	}
}

func TestService_ListByStatus_InvalidStatus(t *testing.T) {
	svc := newTestService(&mockStoreRepo{}, &mockUserRepo{}, &mockNotifier{})

	_, err := svc.ListByStatus(context.Background(), model.StoreStatus("bogus"))
	if err == nil {
		t.Fatal("expected error")
	}
	assertAPIErrorCode(t, err, model.ErrCodeInvalidInput)
}

func TestNewActivationToken_UniqueAndHex(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		token, err := newActivationToken()
		if err != nil {
			t.Fatalf("newActivationToken returned unexpected error: %v", err)
		}
		if len(token) != activationTokenBytes*2 {
			t.Fatalf("token length = %d, want %d", len(token), activationTokenBytes*2)
		}
		if seen[token] {
			t.Fatal("tokens should not repeat")
		}
		seen[token] = true
	}
}
