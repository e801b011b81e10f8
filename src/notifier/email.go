package notifier

import (
	"fmt"

	logger "github.com/sirupsen/logrus"
	gomail "gopkg.in/gomail.v2"

	"cryptobroker/src/model"
)

// Notifier is the outbound channel for scan signals and position alerts.
// Implementations are best-effort: callers log failures and move on.
type Notifier interface {
	SendSignal(sig *model.Signal) error
	SendPositionAlert(trade *model.Trade, kind string, change float64) error
}

// EmailNotifier delivers notifications over SMTP.
type EmailNotifier struct {
	cfg    Config
	dialer *gomail.Dialer
}

func NewEmailNotifier(cfg Config) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
	}
}

// SendSignal mails the scan outcome: an HTML picks table, or a caution
// notice when the regime is risk-off.
func (n *EmailNotifier) SendSignal(sig *model.Signal) error {
	if !n.cfg.Configured() {
		logger.Warn("Email settings incomplete, dropping signal notification")
		return nil
	}

	var subject string
	if sig.Regime == model.RegimeRiskOff {
		subject = "Crypto broker: risk-off, holding back"
	} else {
		subject = fmt.Sprintf("Crypto broker: %d picks", len(sig.Picks))
	}

	body, err := renderSignalHTML(sig)
	if err != nil {
		return fmt.Errorf("render signal email: %w", err)
	}

	return n.send(subject, body)
}

// SendPositionAlert mails one position-watch alert. change is the drawdown
// (negative) or gain (positive) fraction that triggered it.
func (n *EmailNotifier) SendPositionAlert(trade *model.Trade, kind string, change float64) error {
	if !n.cfg.Configured() {
		logger.Warn("Email settings incomplete, dropping position alert")
		return nil
	}

	var subject string
	switch kind {
	case model.AlertHeadsUp:
		subject = fmt.Sprintf("Heads-up: %s down %.1f%% from its high", trade.Symbol, -change*100)
	case model.AlertAction:
		subject = fmt.Sprintf("Action needed: %s down %.1f%% from its high", trade.Symbol, -change*100)
	case model.AlertProfitLock:
		subject = fmt.Sprintf("Profit check: %s up %.1f%% since entry", trade.Symbol, change*100)
	case model.AlertStale:
		subject = fmt.Sprintf("Stale position: %s open for over a week", trade.Symbol)
	default:
		subject = fmt.Sprintf("Position alert: %s", trade.Symbol)
	}

	body, err := renderAlertHTML(trade, kind, change)
	if err != nil {
		return fmt.Errorf("render alert email: %w", err)
	}

	return n.send(subject, body)
}

func (n *EmailNotifier) send(subject, html string) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", n.cfg.User, n.cfg.FromName)
	m.SetHeader("To", n.cfg.To)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", html)

	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	logger.WithFields(map[string]interface{}{
		"component": "notifier",
		"subject":   subject,
	}).Info("Notification email sent")

	return nil
}
