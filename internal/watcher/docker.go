package watcher

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aleister1102/releasewatcher/internal/config"
	"github.com/aleister1102/releasewatcher/internal/httpclient"
	"github.com/aleister1102/releasewatcher/internal/models"
	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/remote/transport"
	"github.com/google/go-containerregistry/pkg/v1/types"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// DockerHubRegistry is the registry host of Docker Hub
const DockerHubRegistry = "registry-1.docker.io"

var manifestAccept = strings.Join([]string{
	string(types.DockerManifestSchema2),
	string(types.OCIImageIndex),
	string(types.OCIManifestSchema1),
	string(types.DockerManifestList),
}, ",")

// DockerRegistryConfig configures a docker_registry watcher
type DockerRegistryConfig struct {
	BaseConfig     `yaml:",inline"`
	Repo           string `yaml:"repo" validate:"required"`
	Image          string `yaml:"image" validate:"required"`
	Tag            string `yaml:"tag" validate:"required"`
	Username       string `yaml:"username,omitempty"`
	Password       string `yaml:"password,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds" validate:"min=1"`
}

// Name returns the friendly name, defaulting to repo:image
func (c DockerRegistryConfig) Name() string {
	return nameOr(c.FriendlyName, c.Repo+":"+c.Image)
}

func (c DockerRegistryConfig) CurrentID() string { return c.Tag }

func (c DockerRegistryConfig) String() string {
	return fmt.Sprintf("%s:%s:%s", c.Repo, c.Image, c.Tag)
}

// baseURL returns the registry root URL. Registries are reached over HTTPS unless repo names a scheme.
func (c DockerRegistryConfig) baseURL() string {
	if strings.Contains(c.Repo, "://") {
		return strings.TrimRight(c.Repo, "/")
	}
	return "https://" + strings.TrimRight(c.Repo, "/")
}

// DockerRegistryType watches the tags of an image in a Docker registry (v2 API)
type DockerRegistryType struct{}

func (DockerRegistryType) Name() string { return "docker_registry" }

func (t DockerRegistryType) ParseConfig(pc config.ParseContext, raw config.RawEntry) (Config, error) {
	cfg := DockerRegistryConfig{
		BaseConfig:     BaseConfig{Type: t.Name()},
		Repo:           DockerHubRegistry,
		Username:       pc.Common.Docker.Username,
		Password:       pc.Common.Docker.Password,
		TimeoutSeconds: pc.Common.Docker.TimeoutSeconds,
	}
	if err := decodeEntry(raw, &cfg); err != nil {
		return nil, err
	}

	image, err := normalizeImage(cfg.Repo, cfg.Image)
	if err != nil {
		return nil, fmt.Errorf("invalid %s watcher: %w", t.Name(), err)
	}
	cfg.Image = image
	return cfg, nil
}

// normalizeImage returns the repository path of image; official Docker Hub images live under library/.
func normalizeImage(registry, image string) (string, error) {
	if registry != DockerHubRegistry {
		return image, nil
	}
	repo, err := name.NewRepository(image)
	if err != nil {
		return "", fmt.Errorf("invalid image %q: %w", image, err)
	}
	return repo.RepositoryStr(), nil
}

func (t DockerRegistryType) Create(cfg Config, logger zerolog.Logger) (Watcher, error) {
	typed, err := configAs[DockerRegistryConfig](cfg, t.Name())
	if err != nil {
		return nil, err
	}
	filter, err := typed.filter()
	if err != nil {
		return nil, err
	}

	logger = watcherLogger(logger, typed)
	client, err := httpclient.NewHTTPClientBuilder(logger).
		WithTimeout(config.Seconds(typed.TimeoutSeconds)).
		Build()
	if err != nil {
		return nil, err
	}

	return &DockerRegistryWatcher{
		cfg:    typed,
		filter: filter,
		client: client,
		logger: logger,
	}, nil
}

// DockerRegistryWatcher resolves tag dates from image configs, then sorts tags by date
// since registries list tags in lexical order.
type DockerRegistryWatcher struct {
	cfg    DockerRegistryConfig
	filter *Filter
	client *httpclient.HTTPClient
	logger zerolog.Logger
	// token is the bearer token obtained from the last authentication challenge
	token string
}

// Config returns the watcher configuration
func (w *DockerRegistryWatcher) Config() Config { return w.cfg }

// Watch lists every tag of the image and compares them with the current tag
func (w *DockerRegistryWatcher) Watch(ctx context.Context) (models.WatchResult, error) {
	w.logger.Debug().Msg("Watching docker registry")
	tags, err := w.listTags(ctx)
	if err != nil {
		return models.WatchResult{}, err
	}

	return evaluation[string]{
		cfg:        w.cfg,
		filter:     w.filter,
		logger:     w.logger,
		id:         func(tag string) string { return tag },
		resolve:    w.resolveTag,
		sortByDate: true,
	}.run(ctx, tags)
}

// listTags follows the Link pagination of the tags list until exhausted.
func (w *DockerRegistryWatcher) listTags(ctx context.Context) ([]string, error) {
	var tags []string
	next := fmt.Sprintf("%s/v2/%s/tags/list", w.cfg.baseURL(), w.cfg.Image)
	for next != "" {
		resp, err := w.get(ctx, next, "application/json")
		if err != nil {
			return nil, err
		}
		if !gjson.ValidBytes(resp.Body) {
			return nil, models.NewWatchError("invalid JSON returned by %s", next)
		}
		body := gjson.ParseBytes(resp.Body)
		if !body.Get("tags").Exists() {
			return nil, models.NewWatchError("field 'tags' missing from response of %s", next)
		}
		for _, tag := range body.Get("tags").Array() {
			tags = append(tags, tag.String())
		}
		next = httpclient.NextPage(resp.Headers, next)
	}
	return tags, nil
}

func (w *DockerRegistryWatcher) resolveTag(ctx context.Context, tag string) (models.Release, error) {
	created, err := w.manifestDate(ctx, tag)
	if err != nil {
		return models.Release{}, err
	}
	if created.IsZero() {
		return models.Release{}, models.NewWatchError("no creation date found for %s:%s", w.cfg.Image, tag)
	}
	return models.NewRelease(tag, created), nil
}

// manifestDate returns the creation date of a manifest reference (tag or digest). For an index
// it is the latest date across the platform manifests. A zero time means no date was found.
func (w *DockerRegistryWatcher) manifestDate(ctx context.Context, reference string) (time.Time, error) {
	u := fmt.Sprintf("%s/v2/%s/manifests/%s", w.cfg.baseURL(), w.cfg.Image, reference)
	resp, err := w.get(ctx, u, manifestAccept)
	if err != nil {
		return time.Time{}, err
	}

	contentType, _, _ := strings.Cut(resp.Headers.Get("Content-Type"), ";")
	mediaType := types.MediaType(strings.TrimSpace(contentType))

	if mediaType.IsIndex() || gjson.GetBytes(resp.Body, "manifests").IsArray() {
		index, err := v1.ParseIndexManifest(bytes.NewReader(resp.Body))
		if err != nil {
			return time.Time{}, models.WrapWatchError(err, "invalid image index at %s", u)
		}

		var latest time.Time
		for _, descriptor := range index.Manifests {
			created, err := w.manifestDate(ctx, descriptor.Digest.String())
			if err != nil {
				return time.Time{}, err
			}
			if created.IsZero() {
				w.logger.Debug().Str("digest", descriptor.Digest.String()).Msg("Skipping manifest without creation date")
				continue
			}
			if created.After(latest) {
				latest = created
			}
		}
		return latest, nil
	}

	manifest, err := v1.ParseManifest(bytes.NewReader(resp.Body))
	if err != nil {
		return time.Time{}, models.WrapWatchError(err, "invalid image manifest at %s", u)
	}
	return w.configDate(ctx, manifest.Config.Digest)
}

// configDate reads the created field of an image config blob.
func (w *DockerRegistryWatcher) configDate(ctx context.Context, digest v1.Hash) (time.Time, error) {
	u := fmt.Sprintf("%s/v2/%s/blobs/%s", w.cfg.baseURL(), w.cfg.Image, digest.String())
	resp, err := w.get(ctx, u, "application/json")
	if err != nil {
		return time.Time{}, err
	}
	configFile, err := v1.ParseConfigFile(bytes.NewReader(resp.Body))
	if err != nil {
		return time.Time{}, models.WrapWatchError(err, "invalid image config at %s", u)
	}
	return configFile.Created.Time.UTC(), nil
}

// get performs an authenticated registry call. A 401 carrying a bearer challenge triggers one
// token request, then the call is retried once.
func (w *DockerRegistryWatcher) get(ctx context.Context, u, accept string) (*httpclient.HTTPResponse, error) {
	resp, err := w.client.Get(ctx, u, w.headers(accept))
	if err != nil {
		return nil, models.WrapWatchError(err, "call to %s failed", u)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		challenge := resp.Headers.Get("WWW-Authenticate")
		if challenge == "" {
			return nil, models.NewWatchError("authentication required by %s but no challenge provided", u)
		}
		w.logger.Debug().Str("url", u).Msg("Authentication required, requesting a token")
		if w.token, err = w.fetchToken(ctx, challenge); err != nil {
			return nil, err
		}
		if resp, err = w.client.Get(ctx, u, w.headers(accept)); err != nil {
			return nil, models.WrapWatchError(err, "call to %s failed", u)
		}
	}

	if !resp.IsSuccess() {
		return nil, models.WrapWatchError(resp.AsError(), "docker registry call to %s failed with status %d", u, resp.StatusCode)
	}
	return resp, nil
}

func (w *DockerRegistryWatcher) headers(accept string) map[string]string {
	headers := map[string]string{"Accept": accept}
	if w.token != "" {
		headers["Authorization"] = "Bearer " + w.token
	}
	return headers
}

// authenticator returns the basic credentials exchanged for a token, anonymous when none are configured.
func (w *DockerRegistryWatcher) authenticator() authn.Authenticator {
	if w.cfg.Username == "" {
		return authn.Anonymous
	}
	return authn.FromConfig(authn.AuthConfig{Username: w.cfg.Username, Password: w.cfg.Password})
}

// registry returns the registry the token is requested for. Plain HTTP registries are insecure.
func (w *DockerRegistryWatcher) registry() (name.Registry, bool, error) {
	base, err := url.Parse(w.cfg.baseURL())
	if err != nil {
		return name.Registry{}, false, err
	}
	insecure := base.Scheme == "http"
	var opts []name.Option
	if insecure {
		opts = append(opts, name.Insecure)
	}
	reg, err := name.NewRegistry(base.Host, opts...)
	return reg, insecure, err
}

// fetchToken answers a bearer challenge through the registry token service.
func (w *DockerRegistryWatcher) fetchToken(ctx context.Context, header string) (string, error) {
	parsed, err := httpclient.ParseAuthChallenge(header)
	if err != nil {
		return "", models.WrapWatchError(err, "invalid authentication challenge")
	}
	if parsed.Scheme != "bearer" {
		return "", models.NewWatchError("unsupported authentication scheme '%s'", parsed.Scheme)
	}
	if parsed.Parameters["realm"] == "" {
		return "", models.NewWatchError("authentication challenge has no realm")
	}

	reg, insecure, err := w.registry()
	if err != nil {
		return "", models.WrapWatchError(err, "invalid registry %s", w.cfg.Repo)
	}
	scopes := []string{fmt.Sprintf("repository:%s:%s", w.cfg.Image, transport.PullScope)}
	if scope := parsed.Parameters["scope"]; scope != "" {
		scopes = strings.Fields(scope)
	}

	token, err := transport.Exchange(ctx, reg, w.authenticator(), w.client.Transport(), scopes, &transport.Challenge{
		Scheme:     parsed.Scheme,
		Parameters: parsed.Parameters,
		Insecure:   insecure,
	})
	if err != nil {
		return "", models.WrapWatchError(err, "token request to %s failed", parsed.Parameters["realm"])
	}
	if token.Token != "" {
		return token.Token, nil
	}
	return token.AccessToken, nil
}
