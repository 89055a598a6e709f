package usecase

import (
	"context"
	"fmt"

	"realtime-sync/internal/alert"
	"realtime-sync/pkg/discord"
)

func (uc *implUseCase) DispatchMisdelivery(ctx context.Context, input alert.MisdeliveryInput) error {
	if input.ReceiverID == "" {
		return alert.ErrInvalidInput
	}

	return uc.report(ctx, discord.Alert{
		Level:       discord.LevelError,
		Title:       "Misdelivered notification",
		Description: fmt.Sprintf("A %s notification for **%s** reached another session.", input.Type, input.ReceiverID),
		Fields: []discord.EmbedField{
			buildField("Local User", input.LocalUserID, true),
			buildField("Receiver", input.ReceiverID, true),
			buildField("Type", input.Type, true),
		},
		Timestamp: stamp(input.At),
	})
}
