package main

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"psiwave-matrix/config"
	"psiwave-matrix/debug"
	"psiwave-matrix/display"
	"psiwave-matrix/effects"
	"psiwave-matrix/midi"
	"psiwave-matrix/theme"
)

const (
	switchSeconds = 30.0
	defaultFPS    = 60.0
)

var errInterrupted = errors.New("interrupted")

type options struct {
	soloStarfield  bool
	soloSinwave    bool
	soloMultiSin   bool
	soloTextScroll bool
	soloScanline   bool

	midiPort          string
	midiSync          string
	syncRefBPM        float64
	syncWavelengthMin float64
	syncWavelengthMax float64
	syncBeatsPerCycle float64
	midiSyncLog       string
	waveSpeedCC       string
	midiLog           string
	midiNoteLog       string

	ccWaveSpeed      int
	ccWaveWavelength int
	ccWaveColor      int
	ccWavePhase      int
	ccStarSpeed      int
	ccStarColor      int
	ccTextSpeed      int
	ccTextColor      int

	starColorThreshold float64
	starColorSteepness float64

	targetFPS    float64
	displayMode  string
	width        int
	height       int
	scale        int
	serialDevice string
	serialBaud   int
	text         string
	debugLog     bool
}

func parseFlags(cfg *config.Config) (*options, error) {
	o := &options{}

	flag.BoolVar(&o.soloStarfield, "solo-starfield", false, "Run only the starfield demo.")
	flag.BoolVar(&o.soloSinwave, "solo-sinwave", false, "Run only the sinwave demo.")
	flag.BoolVar(&o.soloMultiSin, "solo-multi-sinwaves", false, "Run only the multi-sinwaves demo.")
	flag.BoolVar(&o.soloTextScroll, "solo-text-scroll", false, "Run only the text scroll demo.")
	flag.BoolVar(&o.soloScanline, "solo-scanline-notes", false, "Run only the scanline-notes demo.")

	flag.StringVar(&o.midiPort, "midi-port", cfg.Midi.Port, "MIDI input port name (substring match).")
	flag.StringVar(&o.midiSync, "midi-sync", cfg.Midi.Sync,
		"Sync wave parameters to MIDI clock: off, wavelength, speed, spatial, both. "+
			"'speed' beat-locks animation phase; 'wavelength' is an alias for 'speed'; "+
			"'spatial' maps BPM to spatial wavelength.")
	flag.Float64Var(&o.syncRefBPM, "midi-sync-ref-bpm", cfg.Midi.RefBPM, "Reference BPM for wavelength mapping.")
	flag.Float64Var(&o.syncWavelengthMin, "midi-sync-wavelength-min", 0.25, "Min wavelength multiplier when syncing.")
	flag.Float64Var(&o.syncWavelengthMax, "midi-sync-wavelength-max", 2.00, "Max wavelength multiplier when syncing.")
	flag.Float64Var(&o.syncBeatsPerCycle, "midi-sync-beats-per-cycle", 2.0, "Beats per full cycle for speed sync.")
	flag.StringVar(&o.midiSyncLog, "midi-sync-log", "none", "Log MIDI clock status: none, bpm, clock.")
	flag.StringVar(&o.waveSpeedCC, "wave-speed-cc-mapping", "auto",
		"Wave-speed CC mapping mode: auto, on, off. 'auto' disables when -midi-sync is speed/both.")
	flag.StringVar(&o.midiLog, "midi-log", "none", "MIDI CC logging mode: none, mapped, all, both.")
	flag.StringVar(&o.midiNoteLog, "midi-note-log", "none", "MIDI note logging mode: none, all.")

	flag.IntVar(&o.ccWaveSpeed, "cc-wave-speed", -1, "CC number for wave speed (-1 disables).")
	flag.IntVar(&o.ccWaveWavelength, "cc-wave-wavelength", 102, "CC number for wave wavelength.")
	flag.IntVar(&o.ccWaveColor, "cc-wave-color", 108, "CC number for wave colour.")
	flag.IntVar(&o.ccWavePhase, "cc-wave-phase", -1, "CC number for wave phase.")
	flag.IntVar(&o.ccStarSpeed, "cc-starfield-speed", 101, "CC number for starfield speed.")
	flag.IntVar(&o.ccStarColor, "cc-starfield-color", 102, "CC number for starfield colour.")
	flag.IntVar(&o.ccTextSpeed, "cc-text-speed", 101, "CC number for text scroll speed.")
	flag.IntVar(&o.ccTextColor, "cc-text-color", 102, "CC number for text colour.")

	flag.Float64Var(&o.starColorThreshold, "starfield-color-threshold", 0.50, "Sigmoid threshold for starfield color.")
	flag.Float64Var(&o.starColorSteepness, "starfield-color-steepness", 10.0, "Sigmoid steepness for starfield color.")

	flag.Float64Var(&o.targetFPS, "target-fps", defaultFPS, "Target frame rate cap (0 = uncapped).")
	flag.StringVar(&o.displayMode, "display", cfg.Matrix.Display, "Display backend: window, term, serial.")
	flag.IntVar(&o.width, "width", cfg.Matrix.Width, "Matrix width in pixels.")
	flag.IntVar(&o.height, "height", cfg.Matrix.Height, "Matrix height in pixels.")
	flag.IntVar(&o.scale, "scale", cfg.Matrix.Scale, "Window pixel scale.")
	flag.StringVar(&o.serialDevice, "serial-device", cfg.Serial.Device, "Serial device for the LED chain.")
	flag.IntVar(&o.serialBaud, "serial-baud", cfg.Serial.Baud, "Serial baud rate.")
	flag.StringVar(&o.text, "text", cfg.Midi.TextMsg, "Message for the text scroll demo.")
	flag.BoolVar(&o.debugLog, "debug", false, "Write a debug log to ~/.config/psiwave-matrix/debug.log.")

	flag.Parse()

	if err := checkChoice("midi-sync", o.midiSync, "off", "wavelength", "speed", "spatial", "both"); err != nil {
		return nil, err
	}
	if err := checkChoice("midi-sync-log", o.midiSyncLog, "none", "bpm", "clock"); err != nil {
		return nil, err
	}
	if err := checkChoice("wave-speed-cc-mapping", o.waveSpeedCC, "auto", "on", "off"); err != nil {
		return nil, err
	}
	if err := checkChoice("midi-log", o.midiLog, "none", "mapped", "all", "both"); err != nil {
		return nil, err
	}
	if err := checkChoice("midi-note-log", o.midiNoteLog, "none", "all"); err != nil {
		return nil, err
	}
	if err := checkChoice("display", o.displayMode, "window", "term", "serial"); err != nil {
		return nil, err
	}
	solos := 0
	for _, s := range []bool{o.soloStarfield, o.soloSinwave, o.soloMultiSin, o.soloTextScroll, o.soloScanline} {
		if s {
			solos++
		}
	}
	if solos > 1 {
		return nil, errors.New("only one -solo-* flag may be set")
	}
	return o, nil
}

func checkChoice(name, val string, allowed ...string) error {
	for _, a := range allowed {
		if val == a {
			return nil
		}
	}
	return fmt.Errorf("invalid -%s %q (choices: %v)", name, val, allowed)
}

func clampCC(n int) int {
	if n < 0 {
		return n
	}
	if n > 127 {
		return 127
	}
	return n
}

// buildBindings creates the CC routing table. This is the one place CC
// numbers live; effects only ever see parameter names.
func buildBindings(o *options, sinwave *effects.Sinwave, starfield *effects.Starfield, text *effects.TextScroll) []*midi.Binding {
	var bindings []*midi.Binding

	syncTarget := o.midiSync
	if syncTarget == "wavelength" {
		syncTarget = "speed"
	}
	speedCCEnabled := syncTarget != "speed" && syncTarget != "both"
	switch o.waveSpeedCC {
	case "on":
		speedCCEnabled = true
	case "off":
		speedCCEnabled = false
	}

	addLinear := func(cc int, target midi.ParamSink, param string, low, high float64) {
		if cc = clampCC(cc); cc >= 0 {
			bindings = append(bindings, midi.NewBinding([]int{cc}, target, param,
				midi.LinearTransform{Low: low, High: high}, midi.MostRecentOfAny))
		}
	}

	if speedCCEnabled {
		addLinear(o.ccWaveSpeed, sinwave, "speed", 0.0, 2.0)
	}
	addLinear(o.ccWaveWavelength, sinwave, "wavelength", 1.0, 0.25)
	if cc := clampCC(o.ccWaveColor); cc >= 0 {
		bindings = append(bindings, midi.NewBinding([]int{cc}, sinwave, "color",
			midi.RawCCTransform{}, midi.MostRecentOfAny))
	}
	addLinear(o.ccWavePhase, sinwave, "phase_offset", 0.0, 2.0*math.Pi)

	addLinear(o.ccStarSpeed, starfield, "speed", 0.5, 4.0)
	if cc := clampCC(o.ccStarColor); cc >= 0 {
		thr := o.starColorThreshold
		if thr < 0 {
			thr = 0
		} else if thr > 1 {
			thr = 1
		}
		bindings = append(bindings, midi.NewBinding([]int{cc}, starfield, "color_amount",
			midi.SigmoidTransform{Low: 0, High: 1, Threshold: thr, Steepness: o.starColorSteepness},
			midi.MostRecentOfAny))
	}

	addLinear(o.ccTextSpeed, text, "speed", 0.5, 2.0)
	if cc := clampCC(o.ccTextColor); cc >= 0 {
		bindings = append(bindings, midi.NewBinding([]int{cc}, text, "color",
			midi.RawCCTransform{}, midi.MostRecentOfAny))
	}

	return bindings
}

func openMatrix(o *options) (display.Matrix, error) {
	switch o.displayMode {
	case "term":
		return display.NewTerm(o.width, o.height)
	case "serial":
		if o.serialDevice == "" {
			return nil, errors.New("-display serial needs -serial-device")
		}
		return display.OpenSerial(o.serialDevice, o.serialBaud, o.width, o.height)
	default:
		return display.NewScreen(o.width, o.height, o.scale, o.targetFPS), nil
	}
}

type app struct {
	o      *options
	matrix display.Matrix
	canvas display.Canvas
	in     *midi.Input
	router *midi.Router

	demos     []effects.Effect
	activeIdx int
	start     time.Time

	sinwave   *effects.Sinwave
	starfield *effects.Starfield
	text      *effects.TextScroll
	scanline  *effects.Scanline

	syncTarget  string
	syncEnabled bool

	lastClockLog  float64
	lastBeatIndex int64

	keys interface{ TakeKeys() []rune }
	sig  chan os.Signal
	rng  *rand.Rand
}

func newApp(o *options, matrix display.Matrix) *app {
	a := &app{
		o:             o,
		matrix:        matrix,
		canvas:        matrix.CreateFrameCanvas(),
		sinwave:       effects.NewSinwave(),
		starfield:     effects.NewStarfield(),
		text:          effects.NewTextScroll(),
		scanline:      effects.NewScanline(),
		lastClockLog:  -1e9,
		lastBeatIndex: -1,
		sig:           make(chan os.Signal, 1),
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	multiSin := effects.NewMultiSin()

	if o.text != "" {
		a.text.SetText(o.text)
	}

	all := []effects.Effect{a.starfield, a.sinwave, multiSin, a.text, a.scanline}
	switch {
	case o.soloMultiSin:
		a.demos = []effects.Effect{multiSin}
	case o.soloSinwave:
		a.demos = []effects.Effect{a.sinwave}
	case o.soloStarfield:
		a.demos = []effects.Effect{a.starfield}
	case o.soloTextScroll:
		a.demos = []effects.Effect{a.text}
	case o.soloScanline:
		a.demos = []effects.Effect{a.scanline}
	default:
		a.demos = all
	}
	for _, fx := range all {
		fx.Setup(matrix)
	}

	a.syncTarget = o.midiSync
	if a.syncTarget == "wavelength" {
		a.syncTarget = "speed"
	}
	a.syncEnabled = a.syncTarget != "off"

	a.in = midi.NewInput(o.midiPort)
	if a.syncEnabled && !a.in.Enabled() {
		fmt.Println("[midi] WARNING: -midi-sync enabled but MIDI input is disabled/unavailable.")
	}
	if a.syncEnabled {
		fmt.Printf("[midi] Sync mode: %s (debug: -midi-sync-log clock or bpm)\n", a.syncTarget)
	}

	a.router = midi.NewRouter(midi.LogMode(o.midiLog))
	for _, b := range buildBindings(o, a.sinwave, a.starfield, a.text) {
		a.router.Add(b)
	}
	fmt.Printf("[midi] CC bindings: %s\n", a.router.Describe())
	fmt.Printf("[midi] log=%s note_log=%s\n", o.midiLog, o.midiNoteLog)

	if o.midiLog != "none" {
		a.starfield.SetDebug(true)
	}

	if ks, ok := matrix.(interface{ TakeKeys() []rune }); ok {
		a.keys = ks
	}

	signal.Notify(a.sig, os.Interrupt, syscall.SIGTERM)
	return a
}

func (a *app) active() effects.Effect { return a.demos[a.activeIdx] }

func (a *app) switchTo(idx int) {
	a.activeIdx = idx
	a.active().Activate()
	fmt.Printf("Switched to: %s\n", a.active().Name())
}

func (a *app) step() error {
	select {
	case <-a.sig:
		return errInterrupted
	default:
	}

	t := time.Since(a.start).Seconds()

	ccs := a.in.Drain(t)
	notes := a.in.DrainNotes()

	if len(notes) > 0 {
		if a.o.midiNoteLog == "all" {
			for _, n := range notes {
				state := "off"
				if n.On {
					state = "on"
				}
				pc := -1
				if n.Note >= 0 && n.Note <= 127 {
					pc = n.Note % 12
				}
				fmt.Printf("[midi] note t=%7.3fs ch=%2d note=%3d vel=%3d pc=%2d state=%s\n",
					n.T, n.Channel, n.Note, n.Velocity, pc, state)
			}
		}
		for _, n := range notes {
			a.active().HandleNote(n)
		}
	}

	if a.syncEnabled {
		a.syncClock(t)
	}

	a.router.Process(ccs)

	if a.keys != nil {
		for _, k := range a.keys.TakeKeys() {
			if k == 'n' || k == 'N' || k == ' ' {
				a.start = time.Now()
				a.switchTo((a.activeIdx + 1) % len(a.demos))
			}
		}
	}
	if next := int(t/switchSeconds) % len(a.demos); next != a.activeIdx {
		a.switchTo(next)
	}

	a.canvas.Clear()
	a.active().Draw(a.canvas, a.matrix, t)
	next, err := a.matrix.SwapOnVSync(a.canvas)
	if err != nil {
		return err
	}
	a.canvas = next
	return nil
}

// syncClock drives the tempo-locked pieces of the effects from the MIDI
// clock: beat-edge spawn colors, text and scanline phases, and the
// sinwave phase or wavelength override.
func (a *app) syncClock(t float64) {
	st := a.in.ClockState()

	if st.StartPulse {
		a.sinwave.Activate()
		a.lastBeatIndex = -1
	}

	if !st.Running {
		a.sinwave.ClearExternalPhase()
		a.text.ClearScrollPhase()
		a.scanline.ClearSweepPhase()

		if a.o.midiSyncLog == "clock" && t-a.lastClockLog >= 1.0 {
			a.lastClockLog = t
			dbg := a.in.ClockDebug()
			fmt.Printf("[midi] clock running=false bpm=%s ticks=%d last_dt=%ss win=%d sync=%s\n",
				fmtBPM(dbg.BPM, dbg.HasBPM), dbg.TickCount,
				fmtInterval(dbg.LastInterval, dbg.HasLastInterval), dbg.WindowLen, a.syncTarget)
		}
		return
	}

	dbg := a.in.ClockDebug()
	if a.o.midiSyncLog == "clock" && t-a.lastClockLog >= 2.0 {
		a.lastClockLog = t
		fmt.Printf("[midi] clock running=true bpm=%s ticks=%d last_dt=%ss win=%d sync=%s\n",
			fmtBPM(dbg.BPM, dbg.HasBPM), dbg.TickCount,
			fmtInterval(dbg.LastInterval, dbg.HasLastInterval), dbg.WindowLen, a.syncTarget)
	} else if a.o.midiSyncLog == "bpm" && t-a.lastClockLog >= 1.0 {
		a.lastClockLog = t
		if st.HasBPM {
			fmt.Printf("[midi] clock running bpm=%.2f sync=%s\n", st.BPM, a.syncTarget)
		} else {
			fmt.Printf("[midi] clock running (estimating...) ticks=%d win=%d sync=%s\n",
				dbg.TickCount, dbg.WindowLen, a.syncTarget)
		}
	}

	if beat := int64(midi.BeatIndex(dbg.TickCount)); beat != a.lastBeatIndex {
		a.lastBeatIndex = beat
		a.starfield.SetSpawnColorType(theme.StarKind(a.rng.Intn(int(theme.NumStarKinds))))
	}

	// Text scrolls 8 pixels per beat; scanline sweeps once per bar.
	a.text.SetScrollPhase(float64(dbg.TickCount) / 24.0 * 8.0)
	a.scanline.SetSweepPhase(midi.BarPhase(dbg.TickCount))

	if a.syncTarget == "speed" || a.syncTarget == "both" {
		a.sinwave.SetExternalPhase(midi.SyncPhase(dbg.TickCount, a.o.syncBeatsPerCycle))
	}
	if (a.syncTarget == "spatial" || a.syncTarget == "both") && st.HasBPM && st.BPM > 0 {
		ref := a.o.syncRefBPM
		if ref <= 0 {
			ref = 120
		}
		mult := ref / st.BPM
		if mult < a.o.syncWavelengthMin {
			mult = a.o.syncWavelengthMin
		} else if mult > a.o.syncWavelengthMax {
			mult = a.o.syncWavelengthMax
		}
		a.sinwave.SetWavelengthMult(mult)
	}
}

func fmtBPM(bpm float64, ok bool) string {
	if !ok {
		return "?"
	}
	return fmt.Sprintf("%.2f", bpm)
}

func fmtInterval(dt float64, ok bool) string {
	if !ok {
		return "?"
	}
	return fmt.Sprintf("%.4f", dt)
}

func runPaced(step func() error, targetFPS float64) error {
	var budget time.Duration
	if targetFPS > 0 {
		budget = time.Duration(float64(time.Second) / targetFPS)
	}
	for {
		frameStart := time.Now()
		if err := step(); err != nil {
			return err
		}
		if budget > 0 {
			if elapsed := time.Since(frameStart); elapsed < budget {
				time.Sleep(budget - elapsed)
			}
		}
	}
}

func run(o *options) error {
	matrix, err := openMatrix(o)
	if err != nil {
		return err
	}

	a := newApp(o, matrix)
	a.start = time.Now()
	a.active().Activate()
	fmt.Printf("Starting demo: %s (switch every %.0fs). Press 'n' for next effect. CTRL-C to stop.\n",
		a.active().Name(), switchSeconds)

	if drv, ok := matrix.(display.Driver); ok {
		err = drv.Drive(a.step)
	} else {
		err = runPaced(a.step, o.targetFPS)
	}

	switch {
	case errors.Is(err, display.ErrClosed):
		fmt.Println("\nDisplay closed.")
		err = nil
	case errors.Is(err, errInterrupted):
		fmt.Println("\nExiting...")
		err = nil
	}

	a.in.Close()
	matrix.Clear()
	matrix.Close()
	return err
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		cfg = config.DefaultConfig()
	}

	o, err := parseFlags(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if o.debugLog {
		if err := debug.Enable(); err != nil {
			fmt.Fprintf(os.Stderr, "debug log: %v\n", err)
		}
		defer debug.Disable()
	}

	if err := run(o); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
