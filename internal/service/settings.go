package service

import (
	"sync"
	"time"

	"github.com/mat-tom-creator/fileledger/pkg/apierror"
)

// SettingsView is the serializable snapshot of the runtime-adjustable
// engine parameters.
type SettingsView struct {
	MaxFileSize       int64         `json:"max_file_size"`
	TransferExpiry    time.Duration `json:"transfer_expiry"`
	MaxTransferExpiry time.Duration `json:"max_transfer_expiry"`
	DisputeTimeout    time.Duration `json:"dispute_timeout"`
	MinAdminThreshold int           `json:"min_admin_threshold"`
}

func (v SettingsView) validate() error {
	if v.MaxFileSize <= 0 {
		return apierror.InvalidArgument("max file size must be positive", "")
	}
	if v.TransferExpiry <= 0 {
		return apierror.InvalidArgument("transfer expiry must be positive", "")
	}
	if v.MaxTransferExpiry < v.TransferExpiry {
		return apierror.InvalidArgument("max transfer expiry must not be below the default expiry", "")
	}
	if v.DisputeTimeout <= 0 {
		return apierror.InvalidArgument("dispute timeout must be positive", "")
	}
	if v.MinAdminThreshold < 1 {
		return apierror.InvalidArgument("minimum admin threshold must be at least 1", "")
	}
	return nil
}

// Settings holds the engine parameters behind a lock so admin updates
// take effect without a restart.
type Settings struct {
	mu      sync.RWMutex
	current SettingsView
}

func DefaultSettings() SettingsView {
	return SettingsView{
		MaxFileSize:       104_857_600, // 100 MiB
		TransferExpiry:    7 * 24 * time.Hour,
		MaxTransferExpiry: 30 * 24 * time.Hour,
		DisputeTimeout:    14 * 24 * time.Hour,
		MinAdminThreshold: 1,
	}
}

func NewSettings(view SettingsView) (*Settings, error) {
	if err := view.validate(); err != nil {
		return nil, err
	}
	return &Settings{current: view}, nil
}

func (s *Settings) Snapshot() SettingsView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Settings) Update(view SettingsView) error {
	if err := view.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = view
	return nil
}

func (s *Settings) MaxFileSize() int64 {
	return s.Snapshot().MaxFileSize
}

func (s *Settings) TransferExpiry() time.Duration {
	return s.Snapshot().TransferExpiry
}

func (s *Settings) MaxTransferExpiry() time.Duration {
	return s.Snapshot().MaxTransferExpiry
}

func (s *Settings) MinAdminThreshold() int {
	return s.Snapshot().MinAdminThreshold
}
