package worker

import (
	"github.com/fPolic/Connect4-MPI/config"
)

// AgentConfig holds configuration for a worker agent.
type AgentConfig struct {
	// Horizon is used when the coordinator does not send one with the board.
	Horizon int
}

// DefaultAgentConfig creates an AgentConfig from the loaded settings.
func DefaultAgentConfig(cfg *config.Config) *AgentConfig {
	return &AgentConfig{Horizon: cfg.Horizon()}
}
