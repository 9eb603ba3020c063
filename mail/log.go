package mail

import (
	"context"

	goIdentity "github.com/MrEthical07/goIdentity"
	"go.uber.org/zap"
)

// LogSender writes codes to a logger instead of sending mail. Development only.
type LogSender struct {
	logger   *zap.Logger
	renderer *Renderer
}

func NewLogSender(logger *zap.Logger, renderer *Renderer) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = NewRenderer(0)
	}
	return &LogSender{logger: logger, renderer: renderer}
}

func (s *LogSender) SendOTPEmail(_ context.Context, email, code string, purpose goIdentity.Purpose) error {
	msg, err := s.renderer.RenderOTP(code, purpose)
	if err != nil {
		return err
	}
	s.logger.Info("otp email",
		zap.String("to", email),
		zap.String("subject", msg.Subject),
		zap.String("code", code),
	)
	return nil
}
