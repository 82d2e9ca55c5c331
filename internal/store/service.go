// Package store は出店申請から有効化までの店舗ライフサイクルを管理する。
package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/ichiba/internal/logo"
	"github.com/hitoshi/ichiba/internal/model"
	"github.com/hitoshi/ichiba/internal/repository"
)

// activationTokenBytes は有効化トークンの乱数長（hex化して64文字になる）。
const activationTokenBytes = 32

// URLValidator は出店者サイトURLの事前検証のインターフェース。
// security.SSRFGuardServiceを抽象化してテスタビリティを向上させる。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// Notifier は店舗ライフサイクルの通知メール送信のインターフェース。
type Notifier interface {
	SendActivation(ctx context.Context, to, storeName, token string) error
	SendRejection(ctx context.Context, to, storeName string) error
}

// Service は店舗ライフサイクルのサービス層。
// 出店申請 → 管理者審査 → メール有効化のフローを統括する。
type Service struct {
	storeRepo    repository.StoreRepository
	userRepo     repository.UserRepository
	notifier     Notifier
	logoFetcher  logo.FetcherService
	urlValidator URLValidator
	tokenTTL     time.Duration
	now          func() time.Time // テストで差し替えるための時刻取得関数
}

// NewService はServiceの新しいインスタンスを生成する。
// tokenTTLは有効化トークンの有効期間（通常24時間）。
func NewService(
	storeRepo repository.StoreRepository,
	userRepo repository.UserRepository,
	notifier Notifier,
	logoFetcher logo.FetcherService,
	urlValidator URLValidator,
	tokenTTL time.Duration,
) *Service {
	return &Service{
		storeRepo:    storeRepo,
		userRepo:     userRepo,
		notifier:     notifier,
		logoFetcher:  logoFetcher,
		urlValidator: urlValidator,
		tokenTTL:     tokenTTL,
		now:          time.Now,
	}
}

// Register は出店申請を受け付ける。
// フロー: 入力検証 → サイトURL検証 → 重複チェック → pending店舗の作成 → ロールをsellerへ昇格
func (s *Service) Register(ctx context.Context, userID, name, description, websiteURL, picEmail string) (*model.Store, error) {
	if strings.TrimSpace(name) == "" {
		return nil, model.NewInvalidInputError("store name is required")
	}
	if !strings.Contains(picEmail, "@") {
		return nil, model.NewInvalidInputError("PIC email address is invalid")
	}

	// サイトURLは任意だが、指定された場合はSSRF観点で安全なURLのみ受け付ける
	if websiteURL != "" && s.urlValidator != nil {
		if err := s.urlValidator.ValidateURL(websiteURL); err != nil {
			return nil, model.NewInvalidURLError(err.Error())
		}
	}

	existing, err := s.storeRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing store: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateStoreError()
	}

	now := s.now()
	store := &model.Store{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        name,
		Description: description,
		WebsiteURL:  websiteURL,
		PICEmail:    picEmail,
		Status:      model.StoreStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.storeRepo.Create(ctx, store); err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	// 申請と同時に出品者ロールへ昇格する（審査中でも出品者向け画面は閲覧可能）
	if err := s.userRepo.UpdateRole(ctx, userID, model.RoleSeller); err != nil {
		return nil, fmt.Errorf("failed to update user role: %w", err)
	}

	slog.Info("store registered",
		slog.String("store_id", store.ID),
		slog.String("user_id", userID),
	)
	return store, nil
}

// GetStore は店舗情報を取得する。
func (s *Service) GetStore(ctx context.Context, storeID string) (*model.Store, error) {
	store, err := s.storeRepo.FindByID(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to find store: %w", err)
	}
	if store == nil {
		return nil, model.NewStoreNotFoundError(storeID)
	}
	return store, nil
}

// GetStoreByUser はオーナーのユーザーIDで店舗を取得する。
func (s *Service) GetStoreByUser(ctx context.Context, userID string) (*model.Store, error) {
	store, err := s.storeRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find store: %w", err)
	}
	if store == nil {
		return nil, model.NewStoreNotFoundError(userID)
	}
	return store, nil
}

// UpdateProfile はオーナーによる店舗プロフィールの更新を行う。
func (s *Service) UpdateProfile(ctx context.Context, userID, name, description, websiteURL, picEmail string) (*model.Store, error) {
	store, err := s.GetStoreByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(name) == "" {
		return nil, model.NewInvalidInputError("store name is required")
	}
	if !strings.Contains(picEmail, "@") {
		return nil, model.NewInvalidInputError("PIC email address is invalid")
	}
	if websiteURL != "" && s.urlValidator != nil {
		if err := s.urlValidator.ValidateURL(websiteURL); err != nil {
			return nil, model.NewInvalidURLError(err.Error())
		}
	}

	store.Name = name
	store.Description = description
	store.WebsiteURL = websiteURL
	store.PICEmail = picEmail

	if err := s.storeRepo.UpdateProfile(ctx, store); err != nil {
		return nil, fmt.Errorf("failed to update store profile: %w", err)
	}
	return store, nil
}

// ListByStatus は指定状態の店舗一覧を返す（管理者の審査画面向け）。
func (s *Service) ListByStatus(ctx context.Context, status model.StoreStatus) ([]*model.Store, error) {
	if !status.IsValid() {
		return nil, model.NewInvalidInputError("unknown store status: " + string(status))
	}
	stores, err := s.storeRepo.ListByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	return stores, nil
}

// UpdateStatus は管理者による店舗状態の更新を行う。
//
// 許可される要求:
//
//	awaiting_activation — pending店舗の承認。有効化トークンを発行しメールを送信する。
//	rejected            — pendingまたはawaiting_activation店舗の却下。
//
// activeへの直接遷移は許可しない（有効化はトークン検証経由のみ）。
// メール送信の失敗は警告ログに記録するが、永続化済みの状態変更は取り消さない。
func (s *Service) UpdateStatus(ctx context.Context, storeID string, requested model.StoreStatus) (*model.Store, error) {
	store, err := s.GetStore(ctx, storeID)
	if err != nil {
		return nil, err
	}

	if !store.Status.CanTransitionTo(requested) || requested == model.StoreStatusActive {
		return nil, model.NewInvalidStatusTransitionError(store.Status, requested)
	}

	switch requested {
	case model.StoreStatusAwaitingActivation:
		return s.approve(ctx, store)
	case model.StoreStatusRejected:
		return s.reject(ctx, store)
	default:
		return nil, model.NewInvalidStatusTransitionError(store.Status, requested)
	}
}

// ResendActivation は有効化トークンを再発行し、有効化メールを再送する。
// 既存トークンは上書きされるため、最後に発行されたトークンのみが有効になる。
func (s *Service) ResendActivation(ctx context.Context, storeID string) (*model.Store, error) {
	store, err := s.GetStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if store.Status != model.StoreStatusAwaitingActivation {
		return nil, model.NewInvalidStatusTransitionError(store.Status, model.StoreStatusAwaitingActivation)
	}
	return s.approve(ctx, store)
}

// approve は有効化トークンを発行してawaiting_activationへ遷移し、メールを送信する。
func (s *Service) approve(ctx context.Context, store *model.Store) (*model.Store, error) {
	token, err := newActivationToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate activation token: %w", err)
	}
	expires := s.now().Add(s.tokenTTL)

	if err := s.storeRepo.UpdateStatus(ctx, store.ID, model.StoreStatusAwaitingActivation, &token, &expires); err != nil {
		return nil, fmt.Errorf("failed to update store status: %w", err)
	}

	store.Status = model.StoreStatusAwaitingActivation
	store.ActivationToken = &token
	store.ActivationExpires = &expires

	// メール送信はベストエフォート。失敗しても状態変更は維持される（再送で回復可能）。
	if s.notifier != nil {
		if err := s.notifier.SendActivation(ctx, store.PICEmail, store.Name, token); err != nil {
			slog.Warn("有効化メール送信失敗",
				slog.String("store_id", store.ID),
				slog.Any("error", err),
			)
		}
	}

	slog.Info("store approved",
		slog.String("store_id", store.ID),
		slog.Time("activation_expires", expires),
	)
	return store, nil
}

// reject は店舗をrejectedへ遷移し、却下メールを送信する。
// 有効化トークンと期限には触れない（現在値をそのまま書き戻す）。
func (s *Service) reject(ctx context.Context, store *model.Store) (*model.Store, error) {
	if err := s.storeRepo.UpdateStatus(ctx, store.ID, model.StoreStatusRejected, store.ActivationToken, store.ActivationExpires); err != nil {
		return nil, fmt.Errorf("failed to update store status: %w", err)
	}

	store.Status = model.StoreStatusRejected

	if s.notifier != nil {
		if err := s.notifier.SendRejection(ctx, store.PICEmail, store.Name); err != nil {
			slog.Warn("却下メール送信失敗",
				slog.String("store_id", store.ID),
				slog.Any("error", err),
			)
		}
	}

	slog.Info("store rejected", slog.String("store_id", store.ID))
	return store, nil
}

// Activate は有効化トークンを検証し、店舗をactiveへ遷移する。
//
// 結果語彙:
//
//	invalid — トークンに一致する店舗が存在しない（消費済みトークンの再送信を含む）
//	expired — トークンは一致したが期限切れ。トークンは消さない（再発行で回復）
//	success — activeへ遷移し、トークンと期限をクリアした
//	error   — 永続化操作が失敗した
//
// 期限判定は厳密に now > expiry とする（ちょうど期限時刻のトークンは有効）。
func (s *Service) Activate(ctx context.Context, token string) (model.ActivationResult, *model.Store, error) {
	if token == "" {
		return model.ActivationInvalid, nil, nil
	}

	store, err := s.storeRepo.FindByActivationToken(ctx, token)
	if err != nil {
		return model.ActivationError, nil, fmt.Errorf("failed to find store by activation token: %w", err)
	}
	if store == nil {
		return model.ActivationInvalid, nil, nil
	}

	// トークンはawaiting_activationの店舗にのみ存在するはずだが、状態も確認する
	if store.Status != model.StoreStatusAwaitingActivation || store.ActivationExpires == nil {
		return model.ActivationInvalid, nil, nil
	}

	if s.now().After(*store.ActivationExpires) {
		slog.Info("activation token expired",
			slog.String("store_id", store.ID),
			slog.Time("expired_at", *store.ActivationExpires),
		)
		return model.ActivationExpired, store, nil
	}

	// トークンをクリアして単一使用を保証する
	if err := s.storeRepo.UpdateStatus(ctx, store.ID, model.StoreStatusActive, nil, nil); err != nil {
		return model.ActivationError, store, fmt.Errorf("failed to activate store: %w", err)
	}

	store.Status = model.StoreStatusActive
	store.ActivationToken = nil
	store.ActivationExpires = nil

	slog.Info("store activated", slog.String("store_id", store.ID))

	// ロゴ取得はベストエフォート。失敗しても有効化は成立する。
	s.fetchAndSaveLogo(ctx, store)

	return model.ActivationSuccess, store, nil
}

// fetchAndSaveLogo は店舗サイトからロゴを取得して保存する。
func (s *Service) fetchAndSaveLogo(ctx context.Context, store *model.Store) {
	if s.logoFetcher == nil || store.WebsiteURL == "" {
		return
	}

	data, mimeType, err := s.logoFetcher.FetchLogoForSite(ctx, store.WebsiteURL)
	if err != nil || data == nil {
		return
	}

	if err := s.storeRepo.UpdateLogo(ctx, store.ID, data, mimeType); err != nil {
		slog.Warn("ロゴ保存失敗",
			slog.String("store_id", store.ID),
			slog.Any("error", err),
		)
		return
	}

	store.LogoData = data
	store.LogoMime = mimeType
}

// newActivationToken は暗号学的に安全な乱数から有効化トークンを生成する。
// トークンはメールアドレスの所有確認の唯一の証明であるため、推測可能であってはならない。
func newActivationToken() (string, error) {
	buf := make([]byte, activationTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
