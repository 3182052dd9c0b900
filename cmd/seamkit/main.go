package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/seamkit/seamkit"
	"github.com/seamkit/seamkit/config"
	"github.com/seamkit/seamkit/utils"
	"github.com/seamkit/seamkit/worker"
	"golang.org/x/term"
)

const HelpBanner = `
┌─┐┌─┐┌─┐┌┬┐┬┌─┬┌┬┐
└─┐├┤ ├─┤│││├┴┐│ │
└─┘└─┘┴ ┴┴ ┴┴ ┴┴ ┴

Content aware image resize tool.
    Version: %s

`

// pipeName is the file name that indicates stdin/stdout is being used.
const pipeName = "-"

// Version indicates the current build version.
var Version string

var (
	// Flags
	source         = flag.String("in", pipeName, "Source")
	destination    = flag.String("out", pipeName, "Destination")
	configPath     = flag.String("config", "", "YAML configuration file")
	newWidth       = flag.Int("width", 0, "New width (0 keeps the source width)")
	newHeight      = flag.Int("height", 0, "New height (0 keeps the source height)")
	growthLimit    = flag.Float64("growth", 1.0, "Largest fraction of a dimension which can be inserted")
	energyMode     = flag.String("energy", "gradient", "Energy function: gradient or sobel")
	sobelThreshold = flag.Int("sobel", 10, "Sobel filter threshold")
	blurRadius     = flag.Int("blur", 0, "Blur radius applied before the energy computation")
	scale          = flag.Bool("scale", false, "Proportional scaling before carving")
	protectMask    = flag.String("protect", "", "Mask of the regions to protect")
	removeMask     = flag.String("remove", "", "Mask of the regions to remove")
	faceDetect     = flag.Bool("face", false, "Use face detection")
	cascade        = flag.String("cc", "", "Cascade classifier")
	faceAngle      = flag.Float64("angle", 0.0, "Plane rotated faces angle")
	quality        = flag.Int("quality", 100, "Output quality for lossy formats")
	lossless       = flag.Bool("lossless", false, "Lossless WebP output")
	compress       = flag.Bool("zstd", false, "Compress the output with zstd")
	format         = flag.String("format", "", "Output format, derived from the destination by default")
	debug          = flag.Bool("debug", false, "Log the seams and save the first one over the source")
	seamColor      = flag.String("color", seamkit.DefaultSeamColor, "Seam color of the debug overlay")
	serve          = flag.Bool("serve", false, "Serve carve requests as JSON messages over stdin/stdout")
	workers        = flag.Int("conc", 0, "Number of carve requests handled concurrently by -serve")
)

func main() {
	log.SetFlags(0)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, HelpBanner, Version)
		flag.PrintDefaults()
	}
	flag.Parse()
	utils.NoColor = !term.IsTerminal(int(os.Stderr.Fd()))

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf(utils.DecorateText("Failed to load the configuration: %v", utils.ErrorMessage), err)
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf(utils.DecorateText("Invalid options: %v", utils.ErrorMessage), err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	proc, err := newProcessor(cfg)
	if err != nil {
		log.Fatalf(utils.DecorateText("%v", utils.ErrorMessage), err)
	}
	codec := seamkit.Codec{
		Quality:  cfg.Output.Quality,
		Lossless: cfg.Output.Lossless,
		Compress: cfg.Output.Compress,
	}

	if *serve {
		w := worker.New(*proc)
		w.Codec = codec
		w.Concurrency = cfg.Worker.Concurrency
		w.Logger = log.New(os.Stderr, "", 0)
		if err := w.Serve(ctx, os.Stdin, os.Stdout); err != nil {
			log.Fatalf(utils.DecorateText("Worker stopped: %v", utils.ErrorMessage), err)
		}
		return
	}

	if cfg.Resize.Width == 0 && cfg.Resize.Height == 0 {
		flag.Usage()
		log.Fatal(utils.DecorateText("\nPlease provide a width or a height for image rescaling!", utils.ErrorMessage))
	}

	var tracer *seamkit.SeamTracer
	if cfg.Debug.Enabled {
		tracer = &seamkit.SeamTracer{}
		proc.OnStep = tracer.Observe
	}

	spinnerText := fmt.Sprintf("%s %s",
		utils.DecorateText("⚡ SEAMKIT", utils.StatusMessage),
		utils.DecorateText("is resizing the image...", utils.DefaultMessage))
	spinner := utils.NewSpinner(spinnerText, time.Millisecond*200, true)
	spinner.StopMsg = fmt.Sprintf("%s %s",
		utils.DecorateText("⚡ SEAMKIT", utils.StatusMessage),
		utils.DecorateText("is resizing the image... ✔", utils.DefaultMessage))
	go func() {
		// restore the cursor if the user aborts the resize
		<-ctx.Done()
		spinner.RestoreCursor()
	}()

	op := &seamkit.Ops{
		Src:      *source,
		Dst:      *destination,
		PipeName: pipeName,
		Format:   seamkit.Format(cfg.Output.Format),
		Codec:    codec,
		Spinner:  spinner,

		// a zero width or height keeps the source dimension
		KeepSourceSize: true,
	}
	res, err := op.Execute(ctx, proc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n",
			utils.DecorateText("\nError resizing the image:", utils.ErrorMessage),
			utils.DecorateText(fmt.Sprintf("\n\tReason (%s): %v", seamkit.Kind(err), err), utils.DefaultMessage),
		)
		os.Exit(1)
	}

	if res.Path != pipeName {
		fmt.Fprintf(os.Stderr, "\nThe resized image has been saved as: %s\n",
			utils.DecorateText(filepath.Base(res.Path), utils.SuccessMessage))
	}
	if tracer != nil {
		if err := saveOverlay(tracer, res.Path, cfg.Debug.SeamColor); err != nil {
			log.Printf(utils.DecorateText("Could not save the seam overlay: %v", utils.ErrorMessage), err)
		}
	}
	fmt.Fprintf(os.Stderr, "\nExecution time: %s\n",
		utils.DecorateText(utils.FormatTime(res.Duration), utils.SuccessMessage))
}

// applyFlags overrides the configuration with the flags set on the command line.
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "width":
			cfg.Resize.Width = *newWidth
		case "height":
			cfg.Resize.Height = *newHeight
		case "growth":
			cfg.Resize.GrowthLimit = *growthLimit
		case "scale":
			cfg.Resize.Scale = *scale
		case "energy":
			cfg.Energy.Mode = *energyMode
		case "sobel":
			cfg.Energy.SobelThreshold = *sobelThreshold
		case "blur":
			cfg.Energy.BlurRadius = *blurRadius
		case "protect":
			cfg.Masks.Protect = *protectMask
		case "remove":
			cfg.Masks.Remove = *removeMask
		case "face":
			cfg.Face.Enabled = *faceDetect
		case "cc":
			cfg.Face.Classifier = *cascade
		case "angle":
			cfg.Face.Angle = *faceAngle
		case "quality":
			cfg.Output.Quality = *quality
		case "lossless":
			cfg.Output.Lossless = *lossless
		case "zstd":
			cfg.Output.Compress = *compress
		case "format":
			cfg.Output.Format = *format
		case "debug":
			cfg.Debug.Enabled = *debug
		case "color":
			cfg.Debug.SeamColor = *seamColor
		case "conc":
			cfg.Worker.Concurrency = *workers
		}
	})
}

// newProcessor translates the configuration into processor options.
func newProcessor(cfg *config.Config) (*seamkit.Processor, error) {
	proc := &seamkit.Processor{
		NewWidth:       cfg.Resize.Width,
		NewHeight:      cfg.Resize.Height,
		GrowthLimit:    cfg.Resize.GrowthLimit,
		Scale:          cfg.Resize.Scale,
		SobelThreshold: cfg.Energy.SobelThreshold,
		BlurRadius:     cfg.Energy.BlurRadius,
		Debug:          cfg.Debug.Enabled,
	}
	if cfg.Energy.Mode == seamkit.SobelEnergy.String() {
		proc.EnergyMode = seamkit.SobelEnergy
	}
	if cfg.Debug.Enabled {
		proc.Logger = log.New(os.Stderr, "", 0)
	}

	var err error
	if proc.ProtectMask, err = loadMask(cfg.Masks.Protect); err != nil {
		return nil, fmt.Errorf("unable to load the protect mask: %w", err)
	}
	if proc.RemoveMask, err = loadMask(cfg.Masks.Remove); err != nil {
		return nil, fmt.Errorf("unable to load the remove mask: %w", err)
	}

	if cfg.Face.Enabled {
		det, err := seamkit.LoadPigoDetector(cfg.Face.Classifier)
		if err != nil {
			return nil, err
		}
		det.Angle = cfg.Face.Angle
		if cfg.Face.MinSize > 0 {
			det.MinSize = cfg.Face.MinSize
		}
		proc.FaceDetector = det
	}
	return proc, nil
}

func loadMask(path string) (*image.NRGBA, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mask, _, err := seamkit.DefaultCodec.Decode(f)
	return mask, err
}

// saveOverlay writes the first carved seam over the source next to the output, as PNG.
func saveOverlay(tracer *seamkit.SeamTracer, dst, hexColor string) error {
	if dst == pipeName {
		return nil
	}
	img, err := tracer.Overlay(hexColor)
	if err != nil {
		return err
	}
	ext := filepath.Ext(dst)
	if ext == ".zst" {
		dst = strings.TrimSuffix(dst, ext)
		ext = filepath.Ext(dst)
	}
	path := strings.TrimSuffix(dst, ext) + "_seams.png"

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := seamkit.DefaultCodec.Encode(f, img, seamkit.PNG); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
