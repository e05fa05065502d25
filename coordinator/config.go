package coordinator

import "github.com/fPolic/Connect4-MPI/config"

type Config struct {
	// Depth is the number of moves in a task.
	Depth int
	// Horizon is the total search depth sent to workers with the board.
	Horizon      int
	ShuffleTasks bool
}

func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Depth:        cfg.Depth(),
		Horizon:      cfg.Horizon(),
		ShuffleTasks: cfg.GetBool(config.ConfigShuffleTasks),
	}
}
