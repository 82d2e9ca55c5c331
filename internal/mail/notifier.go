package mail

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// Notifier は店舗ライフサイクルの通知メールを組み立てて送信する。
type Notifier struct {
	mailer   Mailer
	baseURL  string
	tokenTTL time.Duration
}

// NewNotifier はNotifierを生成する。
// baseURLは有効化リンクの組み立てに使用する（例: "https://ichiba.example.com"）。
// tokenTTLは有効化トークンの有効期間で、メール本文の期限案内に反映される。
func NewNotifier(mailer Mailer, baseURL string, tokenTTL time.Duration) *Notifier {
	return &Notifier{
		mailer:   mailer,
		baseURL:  baseURL,
		tokenTTL: tokenTTL,
	}
}

// SendActivation は出店承認時の有効化リンク付きメールを送信する。
func (n *Notifier) SendActivation(ctx context.Context, to, storeName, token string) error {
	activationURL := fmt.Sprintf("%s/stores/activate?token=%s", n.baseURL, url.QueryEscape(token))

	subject := "【いちば】出店申請が承認されました"
	body := fmt.Sprintf(
		"店舗「%s」の出店申請が承認されました。\n\n"+
			"以下のリンクから%sに店舗を有効化してください。\n"+
			"%s\n\n"+
			"リンクの期限が切れた場合は、運営までお問い合わせください。\n",
		storeName, formatDeadline(n.tokenTTL), activationURL,
	)

	return n.mailer.Send(ctx, to, subject, body)
}

// formatDeadline はトークン有効期間を期限案内の文言に変換する。
// 1時間未満の端数は分単位で表す。
func formatDeadline(ttl time.Duration) string {
	if ttl < time.Hour {
		minutes := int(ttl.Minutes())
		if minutes < 1 {
			minutes = 1
		}
		return fmt.Sprintf("%d分以内", minutes)
	}
	hours := int(ttl.Hours())
	if ttl%time.Hour != 0 {
		minutes := int((ttl % time.Hour).Minutes())
		return fmt.Sprintf("%d時間%d分以内", hours, minutes)
	}
	return fmt.Sprintf("%d時間以内", hours)
}

// SendRejection は出店却下時の通知メールを送信する。
func (n *Notifier) SendRejection(ctx context.Context, to, storeName string) error {
	subject := "【いちば】出店申請の審査結果について"
	body := fmt.Sprintf(
		"店舗「%s」の出店申請は、審査の結果、承認を見送らせていただきました。\n\n"+
			"ご不明な点は運営までお問い合わせください。\n",
		storeName,
	)

	return n.mailer.Send(ctx, to, subject, body)
}
