package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	pkgerrors "github.com/pkg/errors"

	"github.com/landing-ai/landingai-go/config"
	"github.com/landing-ai/landingai-go/pkg/cache"
	"github.com/landing-ai/landingai-go/pkg/pipeline"
	"github.com/landing-ai/landingai-go/pkg/report"

	httpclient "github.com/landing-ai/landingai-go/pkg/client/http"
	custom_logger "github.com/landing-ai/landingai-go/pkg/logger"
	custom_otel "github.com/landing-ai/landingai-go/pkg/logger/otel"
)

var (
	imagesFlag   = flag.String("images", "", "image folder, or comma separated glob patterns")
	downsizeFlag = flag.Int("downsize", 0, "downsize images wider than this before predicting")
	saveFlag     = flag.String("save", "", "file prefix for the images overlaid with their predictions")
)

func main() {

	if err := config.Init(config.ParseConfigFlag()); err != nil {
		log.Fatal(err.Error())
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger, _ := custom_logger.GetZapLogger(ctx)
	defer func() {
		// can't handle the error due to https://github.com/uber-go/zap/issues/880
		_ = logger.Sync()
	}()

	if config.Config.OTELCollector.Enable {
		mp, err := custom_otel.SetupMetrics(ctx, "landingai-predict")
		if err != nil {
			logger.Fatal(err.Error())
		}
		defer func() {
			_ = mp.Shutdown(context.Background())
		}()
	}

	var responseCache httpclient.ResponseCache
	if config.Config.Cache.Enabled {
		rc := redis.NewClient(&config.Config.Cache.Redis.RedisOptions)
		defer rc.Close()
		responseCache = cache.NewResponseCache(rc, config.Config.Cache.TTL)
	}

	predictor, err := httpclient.NewPredictorClient(ctx, config.Config.Inference, responseCache)
	if err != nil {
		logger.Fatal(err.Error())
	}

	folder, err := newImageFolder(*imagesFlag)
	if err != nil {
		logger.Fatal(pkgerrors.Wrapf(err, "failed to list images %q", *imagesFlag).Error())
	}

	reporter, err := report.NewReporter(config.Config.InfluxDB, nil)
	if err != nil {
		logger.Fatal(err.Error())
	}
	defer reporter.Close()

	logger.Info(fmt.Sprintf("Predicting %d images ...", folder.Len()))

	total := map[string]int{}
	for {
		fs, err := folder.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Warn(err.Error())
			continue
		}
		path := fs.Frames[0].Metadata[pipeline.MetadataImagePath]

		if *downsizeFlag > 0 {
			fs.Downsize(*downsizeFlag, 0)
		}
		if err := fs.RunPredict(ctx, predictor); err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Error("prediction failed", zap.Any("image", path), zap.Error(err))
			continue
		}

		counts := pipeline.ClassCounts(fs)
		for label, n := range counts {
			total[label] += n
		}
		logger.Info("predicted", zap.Any("image", path), zap.Any("counts", counts))

		if *saveFlag != "" {
			if err := saveOverlays(fs, *saveFlag); err != nil {
				logger.Warn(pkgerrors.Wrapf(err, "failed to save overlay of %v", path).Error())
			}
		}
	}

	labels := make([]string, 0, len(total))
	for label := range total {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		logger.Info(fmt.Sprintf("%s: %d", label, total[label]))
	}

	if err := reporter.ReportClassCounts(ctx, *imagesFlag, total, time.Now()); err != nil {
		logger.Error(err.Error())
	}
}

func newImageFolder(images string) (*pipeline.ImageFolder, error) {
	if info, err := os.Stat(images); err == nil && info.IsDir() {
		return pipeline.NewImageFolder(images)
	}
	if images == "" {
		return nil, pipeline.ErrNoSource
	}
	return pipeline.NewImageFolderFromGlob(strings.Split(images, ",")...)
}

// saveOverlays writes every frame with its predictions drawn over it.
func saveOverlays(fs *pipeline.FrameSet, prefix string) error {
	if _, err := fs.OverlayPredictions(); err != nil {
		return err
	}
	_, err := fs.SaveImage(prefix, pipeline.OverlayImage)
	return err
}
