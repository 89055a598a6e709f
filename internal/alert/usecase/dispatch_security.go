package usecase

import (
	"context"
	"fmt"

	"realtime-sync/internal/alert"
	"realtime-sync/pkg/discord"
)

func (uc *implUseCase) DispatchSecurityEvent(ctx context.Context, input alert.SecurityEventInput) error {
	if input.UserID == "" || input.Type == "" {
		return alert.ErrInvalidInput
	}

	fields := []discord.EmbedField{
		buildField("User", input.UserID, true),
		buildField("Type", input.Type, true),
		buildField("Logout In", input.LogoutIn.String(), true),
	}
	if input.Message != "" {
		fields = append(fields, buildField("Message", input.Message, false))
	}

	return uc.report(ctx, discord.Alert{
		Level:       discord.LevelWarning,
		Title:       fmt.Sprintf("Security event: %s", input.Type),
		Description: fmt.Sprintf("User **%s** is being logged out.", input.UserID),
		Fields:      fields,
		Timestamp:   stamp(input.At),
	})
}
