package blocklist

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"gopkg.in/yaml.v3"
)

// GitAuthMode selects how GitSource authenticates against the remote.
type GitAuthMode string

const (
	GitAuthNone  GitAuthMode = "none"
	GitAuthToken GitAuthMode = "token"
	GitAuthSSH   GitAuthMode = "ssh"
)

// GitSourceConfig configures a Git-backed blocklist source.
type GitSourceConfig struct {
	Repository   string
	Branch       string
	Path         string // path to the blocklist YAML file within the repo
	LocalPath    string // clone destination; defaults to an os.TempDir subdir
	AuthMode     GitAuthMode
	Token        string
	SSHKeyPath   string
	SSHKeyPass   string
	PollInterval time.Duration
	CloneTimeout time.Duration
}

// GitSource loads a blocklist from a file inside a Git repository, polling
// on an interval and re-pulling — adapted from the teacher's policy Git
// loader, retargeted at a single blocklist file instead of a policy tree.
type GitSource struct {
	cfg    GitSourceConfig
	logger *slog.Logger

	mu   sync.Mutex
	repo *gogit.Repository
}

func NewGitSource(cfg GitSourceConfig, logger *slog.Logger) *GitSource {
	if cfg.LocalPath == "" {
		cfg.LocalPath = filepath.Join(os.TempDir(), "proxyfleet-blocklist")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Minute
	}
	if cfg.CloneTimeout <= 0 {
		cfg.CloneTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GitSource{cfg: cfg, logger: logger}
}

func (g *GitSource) auth() (transport.AuthMethod, error) {
	switch g.cfg.AuthMode {
	case GitAuthToken:
		if g.cfg.Token == "" {
			return nil, fmt.Errorf("token auth requires a token")
		}
		return &githttp.BasicAuth{Username: "git", Password: g.cfg.Token}, nil
	case GitAuthSSH:
		if g.cfg.SSHKeyPath == "" {
			return nil, fmt.Errorf("ssh auth requires a key path")
		}
		return ssh.NewPublicKeysFromFile("git", g.cfg.SSHKeyPath, g.cfg.SSHKeyPass)
	default:
		return nil, nil
	}
}

func (g *GitSource) ensureClone(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.repo != nil {
		return nil
	}

	if _, err := os.Stat(filepath.Join(g.cfg.LocalPath, ".git")); err == nil {
		repo, err := gogit.PlainOpen(g.cfg.LocalPath)
		if err != nil {
			return fmt.Errorf("open existing blocklist clone: %w", err)
		}
		g.repo = repo
		return nil
	}

	if err := os.MkdirAll(g.cfg.LocalPath, 0o755); err != nil {
		return fmt.Errorf("create clone directory: %w", err)
	}

	auth, err := g.auth()
	if err != nil {
		return fmt.Errorf("build git auth: %w", err)
	}

	cloneCtx, cancel := context.WithTimeout(ctx, g.cfg.CloneTimeout)
	defer cancel()

	repo, err := gogit.PlainCloneContext(cloneCtx, g.cfg.LocalPath, false, &gogit.CloneOptions{
		URL:           g.cfg.Repository,
		ReferenceName: plumbing.NewBranchReferenceName(g.cfg.Branch),
		SingleBranch:  true,
		Auth:          auth,
	})
	if err != nil {
		return fmt.Errorf("clone blocklist repository: %w", err)
	}
	g.repo = repo
	return nil
}

func (g *GitSource) pull(ctx context.Context) error {
	g.mu.Lock()
	repo := g.repo
	g.mu.Unlock()
	if repo == nil {
		return fmt.Errorf("blocklist repository not cloned yet")
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("get worktree: %w", err)
	}
	auth, err := g.auth()
	if err != nil {
		return fmt.Errorf("build git auth: %w", err)
	}
	pullCtx, cancel := context.WithTimeout(ctx, g.cfg.CloneTimeout)
	defer cancel()
	if err := wt.PullContext(pullCtx, &gogit.PullOptions{RemoteName: "origin", Auth: auth}); err != nil && err != gogit.NoErrAlreadyUpToDate {
		return fmt.Errorf("pull blocklist repository: %w", err)
	}
	return nil
}

func (g *GitSource) Load(ctx context.Context) (Blocklist, error) {
	if err := g.ensureClone(ctx); err != nil {
		return Blocklist{}, err
	}
	if err := g.pull(ctx); err != nil {
		g.logger.Warn("blocklist git pull failed, serving last-cloned copy", "error", err)
	}
	data, err := os.ReadFile(filepath.Join(g.cfg.LocalPath, g.cfg.Path))
	if err != nil {
		return Blocklist{}, fmt.Errorf("read blocklist file from clone: %w", err)
	}
	var r raw
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Blocklist{}, fmt.Errorf("parse blocklist file: %w", err)
	}
	return r.toBlocklist(), nil
}

// Watch polls the remote repository every PollInterval and invokes
// onChange with the freshly-loaded blocklist each time.
func (g *GitSource) Watch(ctx context.Context, onChange func(Blocklist)) error {
	if err := g.ensureClone(ctx); err != nil {
		return err
	}
	go func() {
		ticker := time.NewTicker(g.cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				bl, err := g.Load(ctx)
				if err != nil {
					g.logger.Warn("blocklist git reload failed", "error", err)
					continue
				}
				onChange(bl)
			}
		}
	}()
	return nil
}
