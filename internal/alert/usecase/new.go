package usecase

import (
	"realtime-sync/internal/alert"
	"realtime-sync/pkg/discord"
	"realtime-sync/pkg/log"
)

type implUseCase struct {
	logger  log.Logger
	discord discord.IDiscord
}

func New(logger log.Logger, discord discord.IDiscord) alert.UseCase {
	return &implUseCase{
		logger:  logger,
		discord: discord,
	}
}
