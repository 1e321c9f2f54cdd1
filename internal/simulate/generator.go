package simulate

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/grudgematch/internal/domain/model"
	"github.com/okian/grudgematch/pkg/logger"
)

// Name prefixes keep generated names clear of the reserved words.
const (
	playerPrefix = "P"
	gamePrefix   = "Game "
	playerHexLen = 7
	gameHexLen   = 8
	maxNameTries = 16
	hoursPerDay  = 24
)

// nameSource derives short unique names from seeded random UUIDs.
type nameSource struct {
	rng  *rand.ChaCha8
	seen map[string]struct{}
}

func newNameSource(seed uint64) *nameSource {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:8], seed)
	return &nameSource{
		rng:  rand.NewChaCha8(key),
		seen: make(map[string]struct{}),
	}
}

// next returns prefix followed by n hex digits of a fresh UUID.
func (s *nameSource) next(prefix string, n int) (string, error) {
	for range maxNameTries {
		id, err := uuid.NewRandomFromReader(s.rng)
		if err != nil {
			return "", fmt.Errorf("generate name: %w", err)
		}
		name := prefix + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:n])
		key := strings.ToLower(name)
		if _, dup := s.seen[key]; dup {
			continue
		}
		s.seen[key] = struct{}{}
		return name, nil
	}
	return "", fmt.Errorf("generate name: no unique %q name after %d tries", prefix, maxNameTries)
}

// generateNames creates the player and game names of a run.
func generateNames(config *Config) (players, games []string, err error) {
	src := newNameSource(config.Seed)
	players = make([]string, config.Players)
	for i := range players {
		if players[i], err = src.next(playerPrefix, playerHexLen); err != nil {
			return nil, nil, err
		}
	}
	games = make([]string, config.Games)
	for i := range games {
		if games[i], err = src.next(gamePrefix, gameHexLen); err != nil {
			return nil, nil, err
		}
	}
	return players, games, nil
}

// generateMatches creates config.Matches valid matches between the given
// names. Work is split across workers, each with its own seeded source, so
// the result depends only on the config.
func generateMatches(ctx context.Context, config *Config, players, games []string) ([]model.MatchInput, error) {
	logger.Get().Debug(ctx, "generating matches",
		logger.Int("matches", config.Matches),
		logger.Int("workers", config.Workers))

	matches := make([]model.MatchInput, config.Matches)
	if config.Matches == 0 {
		return matches, nil
	}

	type matchResult struct {
		index int
		match model.MatchInput
		err   error
	}

	resultChan := make(chan matchResult, config.Matches)

	workerCount := min(config.Workers, config.Matches)
	matchesPerWorker := config.Matches / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * matchesPerWorker
		end := start + matchesPerWorker
		if worker == workerCount-1 {
			end = config.Matches // Last worker gets remaining matches
		}

		go func(worker, start, end int) {
			rng := rand.New(rand.NewPCG(config.Seed, uint64(worker)))
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- matchResult{index: i, err: ctx.Err()}
					return
				default:
					resultChan <- matchResult{index: i, match: generateSingleMatch(rng, config, players, games)}
				}
			}
		}(worker, start, end)
	}

	for i := 0; i < config.Matches; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during match generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate match %d: %w", result.index, result.err)
			}
			matches[result.index] = result.match
		}
	}

	return matches, nil
}

// generateSingleMatch picks a game, two distinct players, a winner and a
// date inside the configured window.
func generateSingleMatch(rng *rand.Rand, config *Config, players, games []string) model.MatchInput {
	one := rng.IntN(len(players))
	two := rng.IntN(len(players) - 1)
	if two >= one {
		two++
	}
	winner := players[one]
	if rng.IntN(2) == 1 {
		winner = players[two]
	}
	day := time.Duration(rng.IntN(config.Days)) * hoursPerDay * time.Hour
	return model.MatchInput{
		Game:      games[rng.IntN(len(games))],
		PlayerOne: players[one],
		PlayerTwo: players[two],
		Winner:    winner,
		Date:      config.Start.Add(-day),
	}
}
