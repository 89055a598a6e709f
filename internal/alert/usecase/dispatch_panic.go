package usecase

import (
	"context"
	"fmt"

	"realtime-sync/internal/alert"
	"realtime-sync/pkg/discord"
)

func (uc *implUseCase) DispatchPanic(ctx context.Context, input alert.PanicInput) error {
	fields := []discord.EmbedField{
		buildField("Method", input.Method, true),
		buildField("Path", input.Path, true),
	}
	if input.Stack != "" {
		fields = append(fields, buildField("Stack", "```\n"+input.Stack+"\n```", false))
	}

	return uc.report(ctx, discord.Alert{
		Level:       discord.LevelError,
		Title:       "Status server panic",
		Description: fmt.Sprintf("%v", input.Value),
		Fields:      fields,
		Timestamp:   stamp(input.At),
	})
}
