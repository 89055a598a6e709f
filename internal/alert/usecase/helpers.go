package usecase

import (
	"context"
	"fmt"
	"time"

	"realtime-sync/internal/alert"
	"realtime-sync/pkg/discord"
)

func buildField(name string, value string, inline bool) discord.EmbedField {
	if value == "" {
		value = "N/A"
	}
	return discord.EmbedField{
		Name:   name,
		Value:  value,
		Inline: inline,
	}
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

func (uc *implUseCase) report(ctx context.Context, a discord.Alert) error {
	if err := uc.discord.Report(ctx, a); err != nil {
		uc.logger.Errorf(ctx, "internal.alert.usecase.report: %v", err)
		return fmt.Errorf("%w: %v", alert.ErrDispatchFailed, err)
	}
	return nil
}
