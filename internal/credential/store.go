package credential

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/argon2"

	"github.com/9531lyj/AutoCheckBJMF/internal/config"
	"github.com/9531lyj/AutoCheckBJMF/internal/logger"
	apperrors "github.com/9531lyj/AutoCheckBJMF/pkg/errors"
)

const (
	storeFileName = "secure_data.enc"

	saltSize  = 16
	nonceSize = 12
	keySize   = 32
	argonTime = 3
	argonMem  = 64 * 1024
	argonPar  = 4

	// Cookies validated longer ago than this are re-checked against the
	// platform before being handed out.
	freshnessWindow = time.Hour
)

// Bundle is the persisted credential record: the cookie list plus the
// metadata the orchestrator needs alongside it.
type Bundle struct {
	Cookies     []string  `json:"cookies"`
	Class       string    `json:"class"`
	Lat         string    `json:"lat"`
	Lng         string    `json:"lng"`
	Acc         string    `json:"acc"`
	Schedule    string    `json:"schedule"`
	PushToken   string    `json:"push_token"`
	ValidatedAt time.Time `json:"validated_at"`
}

// ApplyBundle fills run-configuration fields absent from cfg with values
// from a stored bundle. An explicitly configured value always wins over
// the stored one.
func ApplyBundle(cfg *config.Config, b *Bundle) {
	if b == nil {
		return
	}
	if len(cfg.Cookie) == 0 {
		cfg.Cookie = b.Cookies
	}
	if cfg.Class == "" {
		cfg.Class = b.Class
	}
	if cfg.Lat == "" {
		cfg.Lat = b.Lat
	}
	if cfg.Lng == "" {
		cfg.Lng = b.Lng
	}
	if cfg.Acc == "" {
		cfg.Acc = b.Acc
	}
	if cfg.ScheduleTime == "" {
		cfg.ScheduleTime = b.Schedule
	}
	if cfg.PushPlus == "" {
		cfg.PushPlus = b.PushToken
	}
}

// Store persists credential bundles encrypted at rest. The key is derived
// from a per-machine secret, so the file is useless when copied to another
// host.
type Store struct {
	path     string
	liveness Liveness
	log      zerolog.Logger
}

// NewStore creates a store rooted at dir. An empty dir selects the
// per-user config directory. liveness may be nil to skip live validation
// entirely.
func NewStore(dir string, liveness Liveness) (*Store, error) {
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve config dir: %w", err)
		}
		dir = filepath.Join(base, "AutoCheckBJMF")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Store{
		path:     filepath.Join(dir, storeFileName),
		liveness: liveness,
		log:      logger.Get(),
	}, nil
}

// Save live-validates every cookie and persists the survivors. It returns
// the number of cookies dropped by validation.
func (s *Store) Save(ctx context.Context, bundle *Bundle) (int, error) {
	valid := bundle.Cookies
	dropped := 0

	if s.liveness != nil {
		valid = make([]string, 0, len(bundle.Cookies))
		for _, raw := range bundle.Cookies {
			if s.liveness.Alive(ctx, raw) {
				valid = append(valid, raw)
			} else {
				dropped++
			}
		}
	}

	if dropped > 0 {
		s.log.Warn().Int("dropped", dropped).Msg("Cookies failed live validation and were not persisted")
	}

	out := *bundle
	out.Cookies = valid
	out.ValidatedAt = time.Now()

	if err := s.write(&out); err != nil {
		return dropped, err
	}
	return dropped, nil
}

// Load decrypts the persisted bundle. Stale bundles are re-validated
// against the platform and rewritten before being returned.
func (s *Store) Load(ctx context.Context) (*Bundle, error) {
	bundle, err := s.read()
	if err != nil {
		return nil, err
	}

	if s.liveness != nil && time.Since(bundle.ValidatedAt) > freshnessWindow {
		s.log.Info().Time("validated_at", bundle.ValidatedAt).Msg("Stored cookies are stale, re-validating")
		valid := make([]string, 0, len(bundle.Cookies))
		for _, raw := range bundle.Cookies {
			if s.liveness.Alive(ctx, raw) {
				valid = append(valid, raw)
			}
		}
		if len(valid) != len(bundle.Cookies) {
			s.log.Warn().Int("dropped", len(bundle.Cookies)-len(valid)).Msg("Stale cookies pruned")
		}
		bundle.Cookies = valid
		bundle.ValidatedAt = time.Now()
		if err := s.write(bundle); err != nil {
			return nil, err
		}
	}

	return bundle, nil
}

func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear store: %w", err)
	}
	return nil
}

// write encrypts the bundle with AES-256-GCM. File format:
// [16-byte salt][12-byte nonce][ciphertext].
func (s *Store) write(bundle *Bundle) error {
	plaintext, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("marshal bundle: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}

	gcm, err := newGCM(salt)
	if err != nil {
		return err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)

	if err := os.WriteFile(s.path, out, 0o600); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	return nil
}

func (s *Store) read() (*Bundle, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.ErrStoreNotFound
		}
		return nil, fmt.Errorf("read store: %w", err)
	}

	if len(data) < saltSize+nonceSize {
		return nil, fmt.Errorf("store file truncated")
	}

	salt := data[:saltSize]
	nonce := data[saltSize : saltSize+nonceSize]
	ciphertext := data[saltSize+nonceSize:]

	gcm, err := newGCM(salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt store: %w", err)
	}

	var bundle Bundle
	if err := json.Unmarshal(plaintext, &bundle); err != nil {
		return nil, fmt.Errorf("unmarshal bundle: %w", err)
	}
	return &bundle, nil
}

func newGCM(salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey([]byte(machineSecret()), salt, argonTime, argonMem, argonPar, keySize)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// machineSecret returns a stable per-machine string used to derive the
// store key. Falls back to user@hostname when no machine id is available.
func machineSecret() string {
	for _, path := range []string{"/etc/machine-id", "/var/lib/dbus/machine-id"} {
		if data, err := os.ReadFile(path); err == nil {
			if id := strings.TrimSpace(string(data)); id != "" {
				return id
			}
		}
	}

	name := "unknown"
	if u, err := user.Current(); err == nil {
		name = u.Username
	}
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	return name + "@" + host
}
