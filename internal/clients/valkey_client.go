package clients

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/ClaudioL888/empathia/internal/models"
)

var (
	valkeyInstance *ValkeyClient
	valkeyOnce     sync.Once
)

const snapshotCacheTTLSeconds = 86400

type ValkeyClient struct {
	mu     sync.Mutex
	Client valkey.Client
}

func valkeyOptions() valkey.ClientOption {
	opts := valkey.ClientOption{
		InitAddress:      []string{os.Getenv("VALKEY_INIT_ADDRESS")},
		Password:         os.Getenv("VALKEY_PASSWORD"),
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
	}
	if os.Getenv("VALKEY_TLS") == "true" {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: false}
	}
	return opts
}

func InitValkey() *ValkeyClient {
	valkeyOnce.Do(func() {
		client, err := valkey.NewClient(valkeyOptions())
		if err != nil {
			panic(fmt.Errorf("[ValkeyClient] failed to create Valkey client: %w", err))
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			panic(fmt.Errorf("[ValkeyClient] failed to ping Valkey: %w", err))
		}

		slog.Info("[ValkeyClient] Successfully connected to valkey")
		valkeyInstance = &ValkeyClient{Client: client}
	})
	return valkeyInstance
}

func CloseValkey() {
	if valkeyInstance != nil {
		valkeyInstance.Client.Close()
	}
}

func GetValkeyClient() *ValkeyClient {
	if valkeyInstance == nil {
		panic("[ValkeyClient] Error: Valkey client is not initialized")
	}
	return valkeyInstance
}

func (vc *ValkeyClient) recreateClient() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[ValkeyClient] Recreate failed and was recovered from panic",
				slog.Any("panic", r))
		}
	}()

	vc.mu.Lock()
	defer vc.mu.Unlock()
	slog.Warn("[ValkeyClient] Attempting to recreate Valkey client...")
	vc.Client.Close()

	client, err := valkey.NewClient(valkeyOptions())
	if err != nil {
		panic(fmt.Errorf("[ValkeyClient] failed to recreate Valkey client: %w", err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		panic(fmt.Errorf("[ValkeyClient] failed to ping Valkey: %w", err))
	}

	slog.Info("[ValkeyClient] Successfully reconnected to valkey")
	vc.Client = client
}

func snapshotKey(keyword string) string {
	return "snapshot:latest:" + keyword
}

// CacheLatestSnapshot stores the snapshot as the latest-pointer fast path for
// its keyword.
func (vc *ValkeyClient) CacheLatestSnapshot(ctx context.Context, snapshot *models.EventSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("[ValkeyClient] failed to marshal snapshot: %w", err)
	}
	key := snapshotKey(snapshot.Keyword)
	completed := []valkey.Completed{
		vc.Client.B().Set().Key(key).Value(string(data)).Build(),
		vc.Client.B().Expire().Key(key).Seconds(snapshotCacheTTLSeconds).Build(),
	}
	for _, res := range vc.DoMultiWithRetry(ctx, completed, 3) {
		if err := res.Error(); err != nil {
			return err
		}
	}
	return nil
}

// CachedLatestSnapshot returns the cached latest snapshot for a keyword, or
// false when the cache has nothing usable.
func (vc *ValkeyClient) CachedLatestSnapshot(ctx context.Context, keyword string) (*models.EventSnapshot, bool) {
	res := vc.DoWithRetry(ctx, vc.Client.B().Get().Key(snapshotKey(keyword)).Build(), 3)
	if err := res.Error(); err != nil {
		if isConnectionError(err) {
			vc.recreateClient()
		}
		return nil, false
	}
	data, err := res.ToString()
	if err != nil {
		return nil, false
	}
	var snapshot models.EventSnapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		slog.Warn("[ValkeyClient] Dropping unparsable cached snapshot",
			slog.String("keyword", keyword),
			slog.String("error", err.Error()))
		return nil, false
	}
	return &snapshot, true
}

// MarkProcessed records a request id in the day-scoped dedup set.
func (vc *ValkeyClient) MarkProcessed(ctx context.Context, requestID string) error {
	completed := []valkey.Completed{
		vc.Client.B().Sadd().Key("analysis:processed").Member(requestID).Build(),
		vc.Client.B().Expire().Key("analysis:processed").Seconds(86400).Build(),
	}
	for _, res := range vc.DoMultiWithRetry(ctx, completed, 3) {
		if err := res.Error(); err != nil {
			return err
		}
	}
	return nil
}

// IsProcessed reports whether a request id was already handled.
func (vc *ValkeyClient) IsProcessed(ctx context.Context, requestID string) bool {
	res := vc.DoWithRetry(ctx, vc.Client.B().Sismember().Key("analysis:processed").Member(requestID).Build(), 3)
	if err := res.Error(); isConnectionError(err) {
		vc.recreateClient()
	}
	ok, err := res.AsBool()
	if err != nil {
		return false
	}
	return ok
}

func (vc *ValkeyClient) DoWithRetry(ctx context.Context, completed valkey.Completed, retries int) valkey.ValkeyResult {
	var result valkey.ValkeyResult
	for i := 0; i < retries; i++ {
		result = vc.Client.Do(ctx, completed)
		if result.Error() == nil {
			break
		}
		slog.Warn("[ValkeyClient] Do failed",
			slog.Int("attempt", i+1),
			slog.String("error", result.Error().Error()))
		time.Sleep(250 * time.Millisecond)
	}
	return result
}

func (vc *ValkeyClient) DoMultiWithRetry(ctx context.Context, completed []valkey.Completed, retries int) []valkey.ValkeyResult {
	var results []valkey.ValkeyResult
	for i := 0; i < retries; i++ {
		results = vc.Client.DoMulti(ctx, completed...)
		hasErr := false
		for _, r := range results {
			if r.Error() != nil {
				hasErr = true
				slog.Warn("[ValkeyClient] DoMulti failed",
					slog.Int("attempt", i+1),
					slog.String("error", r.Error().Error()))
				if isConnectionError(r.Error()) {
					vc.recreateClient()
				}
				break
			}
		}
		if !hasErr {
			break
		}
		time.Sleep(250 * time.Millisecond)
	}
	return results
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "i/o timeout")
}
