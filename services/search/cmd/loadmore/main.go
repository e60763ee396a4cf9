// Command loadmore opens a search results page and presses its
// "Näytä lisää" control until the results run out, then writes the
// expanded page.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"duunihaku/services/search/internal/loadmore"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

func main() {
	baseURL := flag.String("url", "http://localhost:10000/", "search page URL")
	haku := flag.String("haku", "", "search text")
	alue := flag.String("alue", "", "region")
	pages := flag.Int("pages", 0, "maximum number of extra pages to load (0 = all)")
	out := flag.String("out", "", "write the expanded page here instead of stdout")
	timeout := flag.Duration("timeout", 10*time.Second, "HTTP timeout per request")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			log.Printf("failed to sync logger: %v", err)
		}
	}()

	pageURL, err := searchURL(*baseURL, *haku, *alue)
	if err != nil {
		logger.Fatal("invalid url", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := &http.Client{Timeout: *timeout}

	doc, err := openPage(ctx, client, pageURL)
	if err != nil {
		logger.Fatal("failed to open search page", zap.String("url", pageURL), zap.Error(err))
	}

	fetcher, err := loadmore.NewHTTPFetcher(pageURL, client, logger)
	if err != nil {
		logger.Fatal("failed to create fetcher", zap.Error(err))
	}

	controller, err := loadmore.Bind(doc, fetcher, logger)
	switch {
	case errors.Is(err, loadmore.ErrControlAbsent):
		logger.Info("page has a single page of results")
	case err != nil:
		logger.Fatal("page is missing load-more elements", zap.Error(err))
	default:
		loaded, err := controller.Run(ctx, *pages)
		logger.Info("finished loading",
			zap.Int("pages_loaded", loaded),
			zap.Stringer("state", controller.State()))
		if err != nil {
			logger.Error("stopped on error", zap.Error(err))
		}
	}

	logger.Info("cards on page", zap.Int("count", doc.Find("#"+loadmore.CardsID+" article.card").Length()))

	if err := writePage(doc, *out); err != nil {
		logger.Fatal("failed to write page", zap.Error(err))
	}
}

func searchURL(base, haku, alue string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if haku != "" || alue != "" {
		q := u.Query()
		q.Set("haku", haku)
		q.Set("alue", alue)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func openPage(ctx context.Context, client *http.Client, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

func writePage(doc *goquery.Document, path string) error {
	html, err := doc.Html()
	if err != nil {
		return err
	}
	if path == "" {
		_, err = fmt.Fprintln(os.Stdout, html)
		return err
	}
	return os.WriteFile(path, []byte(html), 0o644)
}
