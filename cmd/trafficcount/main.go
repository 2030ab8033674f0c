package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	pkgerrors "github.com/pkg/errors"

	"github.com/landing-ai/landingai-go/config"
	"github.com/landing-ai/landingai-go/pkg/cache"
	"github.com/landing-ai/landingai-go/pkg/pipeline"
	"github.com/landing-ai/landingai-go/pkg/prediction"
	"github.com/landing-ai/landingai-go/pkg/report"
	"github.com/landing-ai/landingai-go/pkg/tracker"

	httpclient "github.com/landing-ai/landingai-go/pkg/client/http"
	custom_logger "github.com/landing-ai/landingai-go/pkg/logger"
	custom_otel "github.com/landing-ai/landingai-go/pkg/logger/otel"
)

var (
	detectionsFlag = flag.String("detections", "", "JSON file holding the detection boxes of every frame")
	imagesFlag     = flag.String("images", "", "frame images, as comma separated glob patterns, predicted in path order")
	sourceFlag     = flag.String("source", "default", "name of the camera the frames come from")
)

func main() {

	if err := config.Init(config.ParseConfigFlag()); err != nil {
		log.Fatal(err.Error())
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ctx, span := otel.Tracer("main-tracer").Start(ctx, "trafficcount")
	defer span.End()

	logger, _ := custom_logger.GetZapLogger(ctx)
	defer func() {
		// can't handle the error due to https://github.com/uber-go/zap/issues/880
		_ = logger.Sync()
	}()

	if config.Config.OTELCollector.Enable {
		mp, err := custom_otel.SetupMetrics(ctx, "landingai-trafficcount")
		if err != nil {
			logger.Fatal(err.Error())
		}
		defer func() {
			_ = mp.Shutdown(context.Background())
		}()
	}

	var frames []tracker.Frame
	var err error
	switch {
	case *detectionsFlag != "":
		frames, err = readFrames(*detectionsFlag)
	case *imagesFlag != "":
		frames, err = predictFrames(ctx, *imagesFlag)
	default:
		err = errors.New("one of -detections or -images is required")
	}
	if err != nil {
		logger.Fatal(err.Error())
	}

	tr := tracker.New(tracker.Config{
		IOUThreshold:       config.Config.Tracker.IOUThreshold,
		MinTrackLength:     config.Config.Tracker.MinTrackLength,
		ParkedDisplacement: config.Config.Tracker.ParkedDisplacement,
	})
	counts := tr.Count(frames)

	reporter, err := report.NewReporter(config.Config.InfluxDB, nil)
	if err != nil {
		logger.Fatal(err.Error())
	}
	defer reporter.Close()

	if err := reporter.ReportTraffic(ctx, *sourceFlag, counts, time.Now()); err != nil {
		logger.Error(err.Error(), zap.String("source", *sourceFlag))
	}
}

func readFrames(path string) ([]tracker.Frame, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to open file")
	}

	var frames []tracker.Frame
	if err := json.Unmarshal(b, &frames); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to decode frames from %s", path)
	}
	for i, f := range frames {
		for _, box := range f {
			if err := box.Validate(); err != nil {
				return nil, pkgerrors.Wrapf(err, "frame %d", i)
			}
		}
	}
	return frames, nil
}

func predictFrames(ctx context.Context, patterns string) ([]tracker.Frame, error) {
	logger, _ := custom_logger.GetZapLogger(ctx)

	var responseCache httpclient.ResponseCache
	if config.Config.Cache.Enabled {
		rc := redis.NewClient(&config.Config.Cache.Redis.RedisOptions)
		defer rc.Close()
		responseCache = cache.NewResponseCache(rc, config.Config.Cache.TTL)
	}

	predictor, err := httpclient.NewPredictorClient(ctx, config.Config.Inference, responseCache)
	if err != nil {
		return nil, err
	}

	folder, err := pipeline.NewImageFolderFromGlob(strings.Split(patterns, ",")...)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to list images %q", patterns)
	}

	var preds [][]prediction.Prediction
	for {
		fs, err := folder.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := fs.RunPredict(ctx, predictor); err != nil {
			return nil, pkgerrors.Wrapf(err, "failed to predict %v", fs.Frames[0].Metadata[pipeline.MetadataImagePath])
		}
		preds = append(preds, fs.Frames[0].Predictions)
	}
	logger.Info("predicted frames", zap.Int("count", len(preds)))

	return tracker.FramesFromPredictions(preds), nil
}
