package local

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dropbox/godropbox/time2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const stateFileName = "ethsigner.toml"

// State is what the proxy remembers about its last run in the data path.
type State struct {
	ChainID   int64     `toml:"chain_id"`
	Address   string    `toml:"address"`
	StartedAt time.Time `toml:"started_at"`
}

// Service keeps State in <data-path>/ethsigner.toml. An empty data path
// disables it; nothing in the request path depends on it.
type Service struct {
	path  string
	clock time2.Clock
}

func NewService(dataPath string, clock time2.Clock) *Service {
	s := &Service{clock: clock}
	if dataPath != "" {
		s.path = filepath.Join(dataPath, stateFileName)
	}

	return s
}

func (s *Service) Enabled() bool {
	return s.path != ""
}

// Load returns the persisted state, or nil if there is none.
func (s *Service) Load() (*State, error) {
	if !s.Enabled() {
		return nil, nil //nolint:nilnil
	}

	var state State
	if _, err := toml.DecodeFile(s.path, &state); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil //nolint:nilnil
		}
		return nil, errors.Wrapf(err, "failed to read %s", s.path)
	}

	return &state, nil
}

// Record stores chainID and address, warning if either differs from the
// previous run. The previous state is returned.
func (s *Service) Record(chainID int64, address common.Address) (*State, error) {
	if !s.Enabled() {
		return nil, nil //nolint:nilnil
	}

	previous, err := s.Load()
	if err != nil {
		return nil, err
	}

	if previous != nil {
		if previous.ChainID != chainID {
			log.Warn().Int64("previous_chain_id", previous.ChainID).Int64("chain_id", chainID).Msg("Chain id differs from previous run")
		}
		if !common.IsHexAddress(previous.Address) || common.HexToAddress(previous.Address) != address {
			log.Warn().Str("previous_address", previous.Address).Str("address", address.Hex()).Msg("Signing address differs from previous run")
		}
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil { //nolint:mnd
		return nil, errors.Wrap(err, "failed to create data path")
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:mnd
	if err != nil {
		return nil, errors.Wrap(err, "failed to create state file")
	}

	state := State{ChainID: chainID, Address: address.Hex(), StartedAt: s.clock.Now().UTC()}
	if err := toml.NewEncoder(f).Encode(state); err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "failed to encode state file")
	}

	if err := f.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to write state file")
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return nil, errors.Wrap(err, "failed to replace state file")
	}

	return previous, nil
}
