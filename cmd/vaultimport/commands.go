package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/poiesic/vaultimport"
	"github.com/poiesic/vaultimport/ai"
	"github.com/poiesic/vaultimport/config"
	"github.com/poiesic/vaultimport/core"
	"github.com/poiesic/vaultimport/envelope"
	"github.com/poiesic/vaultimport/extraction"
	"github.com/poiesic/vaultimport/ingestion"
	"github.com/poiesic/vaultimport/progress"
	"github.com/poiesic/vaultimport/rekey"
	"github.com/poiesic/vaultimport/server"
	"github.com/poiesic/vaultimport/storage"
	"github.com/urfave/cli/v2"
)

var kindsByExtension = map[string]core.SourceKind{
	".csv":  core.SourceKindCSV,
	".txt":  core.SourceKindText,
	".md":   core.SourceKindText,
	".json": core.SourceKindText,
	".png":  core.SourceKindImage,
	".jpg":  core.SourceKindImage,
	".jpeg": core.SourceKindImage,
	".gif":  core.SourceKindImage,
	".webp": core.SourceKindImage,
	".pdf":  core.SourceKindPDF,
}

// inferKind picks the source kind from the --kind flag or the file extension.
func inferKind(flag, path string) (core.SourceKind, error) {
	if flag != "" {
		return core.ParseSourceKind(flag)
	}
	if kind, ok := kindsByExtension[strings.ToLower(filepath.Ext(path))]; ok {
		return kind, nil
	}
	return core.SourceKindText, nil
}

// loadConfig resolves configuration and applies global flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("store") {
		cfg.Store = c.String("store")
		if !c.IsSet("db") && os.Getenv(config.EnvDBPath) == "" {
			cfg.DBPath = config.DefaultDBPath(cfg.Store)
		}
	}
	if c.IsSet("db") {
		cfg.DBPath = c.String("db")
	}
	if c.IsSet("model-host") {
		cfg.ModelHost = c.String("model-host")
	}
	if c.IsSet("model") {
		cfg.Model = c.String("model")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openVault(cfg *config.Config) (*vaultimport.Vault, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(cfg.ModelHost),
		ai.WithModel(cfg.Model),
		ai.WithAPIToken(cfg.APIToken),
	)
	return vaultimport.NewVault(cfg.DBPath, cfg.MasterSecret,
		vaultimport.WithStore(cfg.Store),
		vaultimport.WithAIConfig(aiConfig),
		vaultimport.WithExtractorOptions(
			extraction.WithMaxAttempts(cfg.MaxAttempts),
			extraction.WithChunkTimeout(cfg.ChunkTimeout),
		),
	)
}

func pipelineOptions(cfg *config.Config) []ingestion.Option {
	opts := []ingestion.Option{
		ingestion.WithMaxChunkChars(cfg.MaxChunkChars),
		ingestion.WithPreferDirectCSV(cfg.PreferDirectCSV),
	}
	if cfg.PoolSize > 0 {
		opts = append(opts, ingestion.WithPoolSize(cfg.PoolSize))
	}
	return opts
}

// printProgress renders events as one line each.
func printProgress(w io.Writer) progress.Sink {
	return progress.SinkFunc(func(e progress.Event) {
		fmt.Fprintln(w, describeEvent(e))
	})
}

func describeEvent(e progress.Event) string {
	switch e.Kind {
	case progress.KindProgress:
		if e.Status == progress.StatusComplete {
			return fmt.Sprintf("extraction complete: %d credentials found", e.TotalProcessed)
		}
		if e.CurrentChunk == 0 {
			return fmt.Sprintf("starting: %d chunks", e.TotalChunks)
		}
		return fmt.Sprintf("chunk %d/%d: %d credentials so far", e.CurrentChunk, e.TotalChunks, e.TotalProcessed)
	case progress.KindProcessingComplete:
		return fmt.Sprintf("saving %d credentials", e.TotalProcessed)
	case progress.KindSavingProgress:
		return fmt.Sprintf("saved %d/%d", e.Current, e.Total)
	case progress.KindSuccess:
		lines := []string{e.Message}
		for _, msg := range e.Errors {
			lines = append(lines, "  "+msg)
		}
		return strings.Join(lines, "\n")
	case progress.KindError:
		return "error: " + e.Message
	default:
		return string(e.Kind)
	}
}

func importCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return errors.New("a file to import is required")
	}
	kind, err := inferKind(c.String("kind"), path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if addr := c.String("server"); addr != "" {
		return remoteImport(c.Context, c.App.Writer, addr, kind, c.String("owner"), data)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("max-chunk-chars") {
		cfg.MaxChunkChars = c.Int("max-chunk-chars")
	}
	if c.IsSet("prefer-direct-csv") {
		cfg.PreferDirectCSV = c.Bool("prefer-direct-csv")
	}

	vault, err := openVault(cfg)
	if err != nil {
		return err
	}
	defer vault.Close()

	content := core.RawContent{Kind: kind}
	if kind == core.SourceKindImage {
		content.Data = data
	} else {
		content.Text = string(data)
	}

	_, err = vault.Import(c.Context, content, c.String("owner"), printProgress(c.App.Writer), pipelineOptions(cfg)...)
	return err
}

// remoteImport uploads data to a running server and prints its progress stream.
func remoteImport(ctx context.Context, w io.Writer, addr string, kind core.SourceKind, owner string, data []byte) error {
	url := strings.TrimSuffix(addr, "/") + "/api/v1/imports?kind=" + string(kind)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set(server.OwnerHeader, owner)
	req.Header.Set("Accept", progress.ContentType)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	scanner := progress.NewScanner(resp.Body)
	var last progress.Event
	for scanner.Next() {
		last = scanner.Event()
		fmt.Fprintln(w, describeEvent(last))
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if last.Kind == progress.KindError {
		return errors.New(last.Message)
	}
	return nil
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("listen") {
		cfg.ListenAddr = c.String("listen")
	}
	if c.IsSet("pool-size") {
		cfg.PoolSize = c.Int("pool-size")
	}

	vault, err := openVault(cfg)
	if err != nil {
		return err
	}
	defer vault.Close()

	pipeline, err := vault.NewPipeline(pipelineOptions(cfg)...)
	if err != nil {
		return err
	}
	// Detached imports keep writing after the server stops; drain them
	// before vault.Close.
	defer func() {
		if err := pipeline.Shutdown(c.Duration("drain-timeout")); err != nil {
			slog.Error("imports still running at exit", "err", err)
		}
	}()

	srv := server.NewServer(cfg.ListenAddr, server.NewHandler(pipeline,
		server.WithMaxBodyBytes(ingestion.DefaultMaxInputBytes),
	))

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cfg.ListenAddr, "store", cfg.Store)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func listCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	vault, err := openVault(cfg)
	if err != nil {
		return err
	}
	defer vault.Close()

	filter := storage.Filter{
		Name:    c.String("name"),
		Website: c.String("website"),
		Query:   c.String("query"),
	}
	page := storage.Pagination{Offset: c.Int("offset"), Limit: c.Int("limit")}

	creds, err := vault.ListCredentials(c.Context, c.String("owner"), filter, page)
	if err != nil {
		return err
	}
	return printCredentials(c.App.Writer, creds, c.Bool("reveal"))
}

func printCredentials(w io.Writer, creds []core.RevealedCredential, reveal bool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tUSERNAME\tEMAIL\tWEBSITE\tSECRET")
	for _, cred := range creds {
		secret := "********"
		switch {
		case !cred.Decrypted:
			secret = "<undecryptable>"
		case reveal:
			secret = cred.Plaintext
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", cred.Id, cred.Name, cred.Username, cred.Email, cred.Website, secret)
	}
	return tw.Flush()
}

func revealCommand(c *cli.Context) error {
	id, err := strconv.ParseUint(c.Args().First(), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid credential ID %q", c.Args().First())
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	vault, err := openVault(cfg)
	if err != nil {
		return err
	}
	defer vault.Close()

	cred, err := vault.RevealCredential(c.Context, c.String("owner"), core.ID(id))
	if err != nil {
		return err
	}
	return printCredentials(c.App.Writer, []core.RevealedCredential{*cred}, true)
}

func rekeyCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	newSecret := os.Getenv(c.String("new-secret-env"))
	if newSecret == "" {
		return fmt.Errorf("new master secret missing: set %s", c.String("new-secret-env"))
	}
	if newSecret == cfg.MasterSecret {
		return errors.New("new master secret is identical to the current one")
	}

	oldKey, err := envelope.New(cfg.MasterSecret)
	if err != nil {
		return err
	}
	newKey, err := envelope.New(newSecret)
	if err != nil {
		return err
	}

	vault, err := openVault(cfg)
	if err != nil {
		return err
	}
	defer vault.Close()

	rekeyer, err := rekey.NewRekeyer(vault.Repository(), oldKey, newKey, &rekey.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("batch-size"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}, c.App.ErrWriter)
	if err != nil {
		return err
	}

	result, err := rekeyer.Run(c.Context, c.String("owner"))
	if err != nil {
		return err
	}
	for _, msg := range result.Failed {
		fmt.Fprintln(c.App.Writer, msg)
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d credentials could not be rotated", len(result.Failed))
	}
	return nil
}

func parseCSVCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return errors.New("a CSV file is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	records, err := ingestion.ParseCSV(string(data))
	if err != nil {
		return err
	}
	if !c.Bool("show-secrets") {
		for i := range records {
			records[i] = records[i].Redacted()
		}
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
