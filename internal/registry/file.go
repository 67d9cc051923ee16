package registry

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/mitchellh/mapstructure"

	"github.com/darmiel/clientauth/internal/config"
	"github.com/darmiel/clientauth/internal/core"
)

var (
	_ core.ClientRegistry = (*File)(nil)
	_ core.ClientLister   = (*File)(nil)
)

// FileOptions are the options of the "file" registry type.
type FileOptions struct {
	// Path to a YAML file with a top-level `clients` list.
	Path string `mapstructure:"path"`
}

type clientsFile struct {
	Clients []config.ClientConfig `yaml:"clients"`
}

type fileSnapshot struct {
	modTime time.Time
	size    int64
	static  *Static
}

// File is a registry backed by a YAML file. The file is re-read when its
// modification time or size changed since the last lookup.
type File struct {
	path string

	mu       sync.Mutex
	snapshot *fileSnapshot
}

// NewFileFromOptions decodes the registry options and loads the file once.
func NewFileFromOptions(options map[string]any) (*File, error) {
	var opts FileOptions
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &opts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder for file registry: %w", err)
	}
	if err := decoder.Decode(options); err != nil {
		return nil, fmt.Errorf("failed to decode options for file registry: %w", err)
	}
	if opts.Path == "" {
		return nil, fmt.Errorf("file registry requires a 'path' option")
	}
	return NewFile(opts.Path)
}

// NewFile creates a file registry and loads path once to fail early on invalid files.
func NewFile(path string) (*File, error) {
	f := &File{path: path}
	if _, err := f.current(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) current() (*Static, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return nil, fmt.Errorf("reading client registry file: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if s := f.snapshot; s != nil && s.modTime.Equal(info.ModTime()) && s.size == info.Size() {
		return s.static, nil
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("reading client registry file: %w", err)
	}
	var parsed clientsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parsing client registry file: %w", err)
	}
	static, err := NewStatic(parsed.Clients)
	if err != nil {
		return nil, err
	}
	f.snapshot = &fileSnapshot{modTime: info.ModTime(), size: info.Size(), static: static}
	return static, nil
}

func (f *File) FindSecrets(ctx context.Context, clientID string) ([]core.RegisteredSecret, error) {
	static, err := f.current()
	if err != nil {
		return nil, err
	}
	return static.FindSecrets(ctx, clientID)
}

func (f *File) ListClients(ctx context.Context) ([]core.ClientInfo, error) {
	static, err := f.current()
	if err != nil {
		return nil, err
	}
	return static.ListClients(ctx)
}
