// Package session wires the registry, resolver, orchestrator, installer
// and host probe for one chaos process.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/chaosctl/chaos/internal/build"
	"github.com/chaosctl/chaos/internal/cmakedist"
	"github.com/chaosctl/chaos/internal/config"
	"github.com/chaosctl/chaos/internal/executor"
	"github.com/chaosctl/chaos/internal/httputil"
	"github.com/chaosctl/chaos/internal/install"
	"github.com/chaosctl/chaos/internal/log"
	"github.com/chaosctl/chaos/internal/platform"
	"github.com/chaosctl/chaos/internal/project"
	"github.com/chaosctl/chaos/internal/secrets"
	"github.com/chaosctl/chaos/internal/toolchain"
	"github.com/chaosctl/chaos/internal/userconfig"
)

// ErrNoSelection is returned by build operations when no toolchain is selected.
var ErrNoSelection = errors.New("no toolchain selected")

// Options configures Open. Zero fields take production defaults.
type Options struct {
	Config     *config.Config
	User       *userconfig.Config
	ProjectDir string

	Runner     executor.Runner
	LookPath   func(string) (string, error)
	Probe      *platform.Probe
	Discoverer *toolchain.Discoverer
	Observer   build.Observer
	HTTPClient *http.Client
	// CMakeBaseURL overrides the cmake.org release tree.
	CMakeBaseURL string
	// KeyServerURL overrides where CMake signing keys are fetched from.
	KeyServerURL string
	// GitHubAPIURL overrides the GitHub API endpoint.
	GitHubAPIURL string
	Logger       log.Logger
}

// Session owns all state for one process.
type Session struct {
	cfg     *config.Config
	user    *userconfig.Config
	project *project.Project
	logger  log.Logger

	store    *toolchain.Store
	registry *toolchain.Registry
	resolver *toolchain.Resolver
	selected toolchain.ID

	installer    *install.Installer
	orchestrator *build.Orchestrator
	probe        platform.Probe
	discoverer   toolchain.Discoverer
	httpClient   *http.Client
	fetchOpts    []cmakedist.Option
	fetchers     map[string]*cmakedist.Fetcher
	githubAPIURL string

	caps     *platform.Capabilities
	lookPath func(string) (string, error)
}

// Open loads the project descriptor and the persisted registry.
func Open(opts Options) (*Session, error) {
	logger := log.OrDefault(opts.Logger)

	cfg := opts.Config
	if cfg == nil {
		var err error
		if cfg, err = config.DefaultConfig(); err != nil {
			return nil, err
		}
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	user := opts.User
	if user == nil {
		var err error
		if user, err = userconfig.Load(); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	dir := opts.ProjectDir
	if dir == "" {
		dir = "."
	}
	proj, err := project.Load(dir)
	if err != nil {
		return nil, err
	}

	store := toolchain.NewStore(cfg.RegistryFile, logger)
	registry, selected, err := store.Load()
	if err != nil {
		return nil, err
	}

	lookPath := opts.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	runner := opts.Runner
	if runner == nil {
		runner = &executor.ExecRunner{Stdout: os.Stdout, Logger: logger}
	}

	s := &Session{
		cfg:      cfg,
		user:     user,
		project:  proj,
		logger:   logger,
		store:    store,
		registry: registry,
		resolver: toolchain.NewResolver(registry),
		selected: selected,
		lookPath: lookPath,
	}

	s.installer = install.NewInstaller(runner,
		install.WithSudo(user.UseSudo),
		install.WithTimeout(config.GetInstallTimeout()),
		install.WithLookPath(lookPath),
		install.WithLogger(logger),
	)

	orchOpts := []build.Option{
		build.WithStepTimeout(config.GetStepTimeout()),
		build.WithLogger(logger),
	}
	if opts.Observer != nil {
		orchOpts = append(orchOpts, build.WithObserver(opts.Observer))
	}
	s.orchestrator = build.NewOrchestrator(runner, build.LayoutFor(proj, user.Jobs()), orchOpts...)

	if opts.Probe != nil {
		s.probe = *opts.Probe
	} else {
		s.probe = platform.Probe{LookPath: lookPath}
	}
	if opts.Discoverer != nil {
		s.discoverer = *opts.Discoverer
	} else {
		s.discoverer = toolchain.Discoverer{LookPath: lookPath, DumpVersion: dumpVersion}
	}

	client := opts.HTTPClient
	if client == nil {
		client = httputil.NewSecureClient(httputil.ClientOptions{Timeout: config.GetHTTPTimeout()})
	}
	fetchOpts := []cmakedist.Option{cmakedist.WithLogger(logger), cmakedist.WithProgress(os.Stderr)}
	if opts.CMakeBaseURL != "" {
		fetchOpts = append(fetchOpts, cmakedist.WithBaseURL(opts.CMakeBaseURL))
	}
	if user.CMakeSigningKey != "" {
		keys, err := cmakedist.NewKeyRing(client, user.CMakeSigningKey, opts.KeyServerURL, filepath.Join(cfg.CacheDir, "keys"))
		if err != nil {
			return nil, fmt.Errorf("cmake_signing_key: %w", err)
		}
		fetchOpts = append(fetchOpts, cmakedist.WithKeyRing(keys))
	}
	s.httpClient, s.fetchOpts, s.githubAPIURL = client, fetchOpts, opts.GitHubAPIURL
	s.fetchers = make(map[string]*cmakedist.Fetcher)

	logger.Debug("session opened", "project", proj.Root, "toolchains", registry.Len())
	return s, nil
}

func dumpVersion(path string) (string, error) {
	out, err := exec.Command(path, "-dumpversion").Output()
	return string(out), err
}

// Config returns the environment configuration.
func (s *Session) Config() *config.Config { return s.cfg }

// User returns the user configuration.
func (s *Session) User() *userconfig.Config { return s.user }

// Project returns the project descriptor.
func (s *Session) Project() *project.Project { return s.project }

// Resolver maps 1-based menu indices onto registry entries.
func (s *Session) Resolver() *toolchain.Resolver { return s.resolver }

// Toolchains lists registered toolchains in display order.
func (s *Session) Toolchains() []toolchain.Entry { return s.registry.List() }

// Selected returns the selected toolchain, if any.
func (s *Session) Selected() (toolchain.Entry, bool) {
	if s.selected == "" {
		return toolchain.Entry{}, false
	}
	index, ok := s.registry.IndexOf(s.selected)
	if !ok {
		return toolchain.Entry{}, false
	}
	p, _ := s.registry.Get(s.selected)
	return toolchain.Entry{Index: index, ID: s.selected, Profile: p}, true
}

// Capabilities detects the host once per session.
func (s *Session) Capabilities() (platform.Capabilities, error) {
	if s.caps != nil {
		return *s.caps, nil
	}
	caps, err := s.probe.Detect()
	if err != nil {
		return platform.Capabilities{}, fmt.Errorf("failed to detect host: %w", err)
	}
	s.logger.Debug("detected host", "caps", caps.String())
	s.caps = &caps
	return caps, nil
}

func (s *Session) save() error {
	return s.store.Save(s.registry, s.selected)
}

// register adds profiles and persists the registry when anything changed.
// It returns the entries for all profiles, new or existing.
func (s *Session) register(profiles []toolchain.Profile) ([]toolchain.Entry, error) {
	var entries []toolchain.Entry
	changed := false
	for _, p := range profiles {
		id, created := s.registry.Register(p)
		changed = changed || created
		index, _ := s.registry.IndexOf(id)
		entries = append(entries, toolchain.Entry{Index: index, ID: id, Profile: p})
	}
	if changed {
		if err := s.save(); err != nil {
			return entries, err
		}
	}
	return entries, nil
}

// InstallTools installs the required tool set plus the project's extra tools.
func (s *Session) InstallTools(ctx context.Context) ([]install.Report, error) {
	caps, err := s.Capabilities()
	if err != nil {
		return nil, err
	}
	names := append(append([]string{}, install.RequiredTools...), s.project.Tools...)
	return s.installer.InstallAll(ctx, names, caps)
}

// InstallCompiler installs a catalog compiler ("gcc-14") and registers one
// profile per configured build type.
func (s *Session) InstallCompiler(ctx context.Context, name string) ([]toolchain.Entry, error) {
	tool, ok := install.Lookup(name)
	if !ok || !tool.IsCompiler() {
		return nil, &install.InstallError{Tool: name, Reason: "unknown tool"}
	}
	caps, err := s.Capabilities()
	if err != nil {
		return nil, err
	}
	if _, err := s.installer.EnsureInstalled(ctx, name, caps); err != nil {
		return nil, err
	}
	return s.register(toolchain.ProfilesFor(*tool.Compiler, caps.Host(), s.user.BuildTypes))
}

// InstallAllCompilers installs every catalog compiler, stopping at the first
// failure. Entries registered before the failure are returned.
func (s *Session) InstallAllCompilers(ctx context.Context) ([]toolchain.Entry, error) {
	var all []toolchain.Entry
	for _, tool := range install.Compilers() {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		entries, err := s.InstallCompiler(ctx, tool.Name)
		all = append(all, entries...)
		if err != nil {
			return all, err
		}
	}
	return all, nil
}

// Discover registers compilers already installed on the host and the
// pre-authored profiles in the project's profiles directory.
func (s *Session) Discover() ([]toolchain.Entry, error) {
	caps, err := s.Capabilities()
	if err != nil {
		return nil, err
	}
	host := caps.Host()
	installed := s.discoverer.Discover()
	var profiles []toolchain.Profile
	for _, c := range installed {
		profiles = append(profiles, toolchain.ProfilesFor(c, host, s.user.BuildTypes)...)
	}

	if dir := s.project.ProfilesPath(); isDir(dir) {
		scanned, invalid, err := toolchain.ScanProfiles(dir)
		if err != nil {
			return nil, err
		}
		for _, e := range invalid {
			s.logger.Warn("ignoring profile file", "error", e)
		}
		for _, p := range scanned {
			if !compatible(p, host, installed) {
				s.logger.Info("skipping profile for another host or compiler", "profile", p.FileName())
				continue
			}
			profiles = append(profiles, p)
		}
	}
	return s.register(profiles)
}

// compatible reports whether a pre-authored profile targets host and names
// a compiler found on it. Compilers match by kind and major version.
func compatible(p toolchain.Profile, host toolchain.Host, installed []toolchain.Compiler) bool {
	if p.Architecture != host.Architecture || p.Distro != host.Distro {
		return false
	}
	for _, c := range installed {
		if c.Kind == p.Compiler.Kind && c.Major() == p.Compiler.Major() {
			return true
		}
	}
	return false
}

// Select makes id the active toolchain and refreshes the project's
// CurrentToolchain.cmake and CurrentProfile.conanprofile links.
func (s *Session) Select(id toolchain.ID) (toolchain.Entry, error) {
	p, err := s.registry.Get(id)
	if err != nil {
		return toolchain.Entry{}, err
	}
	s.selected = id
	if err := s.save(); err != nil {
		return toolchain.Entry{}, err
	}
	s.refreshLinks(&p)
	index, _ := s.registry.IndexOf(id)
	return toolchain.Entry{Index: index, ID: id, Profile: p}, nil
}

// Remove unregisters id. Removing the selected toolchain clears the selection.
// When the registry cannot be saved, the entry and selection are put back.
func (s *Session) Remove(id toolchain.ID) (toolchain.Profile, error) {
	index, ok := s.registry.IndexOf(id)
	if !ok {
		return toolchain.Profile{}, &toolchain.NotFoundError{Kind: toolchain.UnknownID, ID: id}
	}
	p, err := s.registry.RemoveID(id)
	if err != nil {
		return toolchain.Profile{}, err
	}
	selected := s.selected
	if selected == id {
		s.selected = ""
	}
	if err := s.save(); err != nil {
		s.registry.Insert(index, id, p)
		s.selected = selected
		return toolchain.Profile{}, err
	}
	if selected == id {
		s.refreshLinks(nil)
	}
	return p, nil
}

// refreshLinks points the project links at p's files, or removes them when
// p is nil or a target does not exist.
func (s *Session) refreshLinks(p *toolchain.Profile) {
	links := []struct{ name, target string }{
		{project.CurrentToolchainLink, ""},
		{project.CurrentProfileLink, ""},
	}
	if p != nil {
		links[0].target = p.ToolchainFile(s.project.ToolchainsPath())
		links[1].target = filepath.Join(s.project.ProfilesPath(), p.FileName()+".conanprofile")
	}
	for _, l := range links {
		path := filepath.Join(s.project.Root, l.name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove link", "path", path, "error", err)
			continue
		}
		if l.target == "" {
			continue
		}
		if _, err := os.Stat(l.target); err != nil {
			s.logger.Debug("link target missing", "target", l.target)
			continue
		}
		if err := os.Symlink(l.target, path); err != nil {
			s.logger.Warn("failed to create link", "path", path, "error", err)
		}
	}
}

func (s *Session) profileFor(id toolchain.ID) (toolchain.Profile, error) {
	if id == "" {
		id = s.selected
	}
	if id == "" {
		return toolchain.Profile{}, ErrNoSelection
	}
	return s.registry.Get(id)
}

// Run executes action for id, or for the selected toolchain when id is empty.
// Orchestrator errors are returned unwrapped.
func (s *Session) Run(ctx context.Context, action build.Action, id toolchain.ID) (*build.Result, error) {
	p, err := s.profileFor(id)
	if err != nil {
		return nil, err
	}
	if action != build.Clean && !s.project.HasCMakeLists() {
		return nil, fmt.Errorf("%s has no CMakeLists.txt", s.project.Root)
	}
	return s.orchestrator.Execute(ctx, action, p)
}

// Plan renders the steps Run would execute without running them.
func (s *Session) Plan(action build.Action, id toolchain.ID) ([]build.PlannedStep, error) {
	p, err := s.profileFor(id)
	if err != nil {
		return nil, err
	}
	return s.orchestrator.Layout().Plan(action, p), nil
}

// FetchCMake downloads CMake releases >= min into $CHAOS_HOME/cmake.
// An empty source uses the cmake_source setting.
func (s *Session) FetchCMake(ctx context.Context, source string, min *semver.Version, latestPatchOnly bool) ([]cmakedist.Binary, error) {
	f, err := s.fetcher(source)
	if err != nil {
		return nil, err
	}
	return f.Fetch(ctx, min, latestPatchOnly, s.cfg.CMakeDir)
}

func (s *Session) fetcher(source string) (*cmakedist.Fetcher, error) {
	if source == "" {
		source = s.user.Source()
	}
	source, err := cmakedist.ParseSource(source)
	if err != nil {
		return nil, err
	}
	if f, ok := s.fetchers[source]; ok {
		return f, nil
	}

	opts := s.fetchOpts
	if source == cmakedist.SourceGitHub {
		token := secrets.Lookup(s.user, "github_token")
		gh := cmakedist.NewGitHubClient(s.httpClient, token)
		if s.githubAPIURL != "" {
			base, err := url.Parse(strings.TrimSuffix(s.githubAPIURL, "/") + "/")
			if err != nil {
				return nil, fmt.Errorf("invalid GitHub API URL: %w", err)
			}
			gh.BaseURL = base
		}
		opts = append(append([]cmakedist.Option(nil), opts...), cmakedist.WithGitHub(gh, token != ""))
		s.logger.Debug("listing cmake releases on github", "authenticated", token != "")
	}
	f := cmakedist.NewFetcher(s.httpClient, opts...)
	s.fetchers[source] = f
	return f, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
