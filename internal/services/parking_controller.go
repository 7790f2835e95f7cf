package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/parkit/server/internal/models"
	"github.com/parkit/server/internal/observability"
	"github.com/parkit/server/internal/repository"
)

// Notifier receives presentation events from the controller
type Notifier interface {
	Notify(msgType string, payload interface{})
}

// ImageProcessor turns raw uploads into bounded JPEGs
type ImageProcessor interface {
	Process(ctx context.Context, in models.CaptureInput) (*models.ProcessedPhoto, error)
}

// CaptureRequest is one capture attempt: the upload plus the client's
// location fix, if it had one.
type CaptureRequest struct {
	Input models.CaptureInput
	Fix   *models.Coordinates
}

// CaptureResult is returned after a record was saved
type CaptureResult struct {
	Snapshot         models.Snapshot
	Photo            *models.ProcessedPhoto
	LocationObtained bool
}

type noopNotifier struct{}

func (noopNotifier) Notify(string, interface{}) {}

// ControllerOption configures a ParkingController
type ControllerOption func(*ParkingController)

// WithClock overrides the time source
func WithClock(now func() time.Time) ControllerOption {
	return func(c *ParkingController) { c.now = now }
}

// WithTick sets the readout interval
func WithTick(d time.Duration) ControllerOption {
	return func(c *ParkingController) {
		if d > 0 {
			c.tick = d
		}
	}
}

// WithTicker overrides how readout tickers are created. The returned
// function stops the ticker.
func WithTicker(fn func(time.Duration) (<-chan time.Time, func())) ControllerOption {
	return func(c *ParkingController) {
		if fn != nil {
			c.newTicker = fn
		}
	}
}

// WithThresholds sets the severity thresholds
func WithThresholds(th Thresholds) ControllerOption {
	return func(c *ParkingController) { c.thresholds = th }
}

// WithNotifier sets where readouts and state changes are published
func WithNotifier(n Notifier) ControllerOption {
	return func(c *ParkingController) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithMetrics attaches business metrics
func WithMetrics(m *observability.ParkingMetrics) ControllerOption {
	return func(c *ParkingController) { c.metrics = m }
}

// ParkingController owns the NoRecord/HasRecord state machine. All
// mutation happens under mu; at most one readout timer runs at a time.
type ParkingController struct {
	store    repository.RecordRepo
	images   ImageProcessor
	geo      *GeolocationService
	notifier Notifier
	metrics  *observability.ParkingMetrics

	thresholds Thresholds
	tick       time.Duration
	now        func() time.Time
	newTicker  func(time.Duration) (<-chan time.Time, func())

	mu     sync.Mutex
	state  models.RecordState
	record *models.ParkingRecord
	mapKey uint64
	timer  chan struct{}
}

func systemTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// NewParkingController creates a controller in the NoRecord state. Call
// Start to load the persisted record.
func NewParkingController(store repository.RecordRepo, images ImageProcessor, geo *GeolocationService, opts ...ControllerOption) *ParkingController {
	c := &ParkingController{
		store:      store,
		images:     images,
		geo:        geo,
		notifier:   noopNotifier{},
		thresholds: DefaultThresholds(),
		tick:       time.Second,
		now:        time.Now,
		newTicker:  systemTicker,
		state:      models.StateNoRecord,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start loads the persisted record and enters the matching state. Corrupt
// data is treated as absent. A store error is returned after entering
// NoRecord so the caller can log it.
func (c *ParkingController) Start(ctx context.Context) error {
	ctx, span := observability.StartServiceSpan(ctx, "ParkingController", "Start")
	defer span.End()

	record, err := c.store.Load(ctx)
	switch {
	case errors.Is(err, models.ErrCorruptRecord):
		observability.WithContext(ctx).Warnf("Discarding unreadable parking record: %v", err)
		record, err = nil, nil
	case err != nil:
		observability.RecordError(span, err)
		record = nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if record.IsDisplayable() {
		c.enterHasRecordLocked(record)
	} else {
		c.enterNoRecordLocked()
	}
	span.SetAttributes(observability.RecordState(c.state.String()))
	return err
}

// Capture processes the photo and resolves the location concurrently, then
// saves the new record and enters HasRecord. On failure the state and the
// stored record are left as they were.
func (c *ParkingController) Capture(ctx context.Context, req CaptureRequest) (*CaptureResult, error) {
	ctx, span := observability.StartServiceSpan(ctx, "ParkingController", "Capture")
	defer span.End()
	logger := observability.WithContext(ctx)

	if !req.Input.IsImage() {
		c.metrics.RecordCapture(ctx, models.ErrorCode(models.ErrInvalidInputType), 0, false)
		observability.RecordError(span, models.ErrInvalidInputType)
		return nil, models.ErrInvalidInputType
	}

	var location <-chan *models.Coordinates
	if c.geo != nil {
		location = c.geo.TryGetLocation(ctx, c.geo.LocatorFor(req.Fix, req.Input.Data))
	} else {
		ch := make(chan *models.Coordinates, 1)
		ch <- nil
		location = ch
	}

	photo, err := c.images.Process(ctx, req.Input)
	if err != nil {
		c.metrics.RecordCapture(ctx, models.ErrorCode(err), 0, false)
		observability.RecordError(span, err)
		logger.Warnf("Capture rejected: %v", err)
		return nil, err
	}

	var coords *models.Coordinates
	select {
	case coords = <-location:
	case <-ctx.Done():
		observability.RecordError(span, ctx.Err())
		return nil, ctx.Err()
	}

	record, err := models.NewParkingRecord(photo.DataURI(), coords, c.now())
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Save(ctx, record); err != nil {
		code := models.ErrorCode(err)
		c.metrics.RecordCapture(ctx, code, len(photo.Data), coords != nil)
		c.metrics.RecordStoreError(ctx, "save", code)
		observability.RecordError(span, err)
		logger.Errorf("Failed to save parking record: %v", err)
		return nil, err
	}

	c.enterHasRecordLocked(record)

	c.metrics.RecordCapture(ctx, "saved", len(photo.Data), coords != nil)
	span.SetAttributes(
		observability.PhotoBytes(len(photo.Data)),
		observability.LocationObtained(coords != nil),
	)
	observability.SetSuccess(span)
	logger.WithField("location", coords != nil).Infof("Parking recorded (%d bytes, %dx%d)", len(photo.Data), photo.Width, photo.Height)

	return &CaptureResult{
		Snapshot:         c.snapshotLocked(),
		Photo:            photo,
		LocationObtained: coords != nil,
	}, nil
}

// Preview runs the image pipeline without touching state or storage
func (c *ParkingController) Preview(ctx context.Context, in models.CaptureInput) (*models.ProcessedPhoto, error) {
	ctx, span := observability.StartServiceSpan(ctx, "ParkingController", "Preview")
	defer span.End()

	photo, err := c.images.Process(ctx, in)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	observability.SetSuccess(span)
	return photo, nil
}

// Clear removes the stored record and always enters NoRecord. A store
// failure is still returned.
func (c *ParkingController) Clear(ctx context.Context) error {
	ctx, span := observability.StartServiceSpan(ctx, "ParkingController", "Clear")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.store.Clear(ctx)
	c.enterNoRecordLocked()
	c.metrics.RecordClear(ctx, err == nil)

	if err != nil {
		c.metrics.RecordStoreError(ctx, "clear", models.ErrorCode(err))
		observability.RecordError(span, err)
		observability.WithContext(ctx).Errorf("Failed to clear parking record: %v", err)
		return err
	}
	observability.SetSuccess(span)
	return nil
}

// Snapshot returns the current presentation state
func (c *ParkingController) Snapshot() models.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Photo returns the decoded bytes of the current record's photo
func (c *ParkingController) Photo() (mediaType string, data []byte, ok bool) {
	c.mu.Lock()
	record := c.record
	c.mu.Unlock()

	if !record.IsDisplayable() {
		return "", nil, false
	}
	mediaType, data, err := models.ParseDataURI(record.Photo)
	if err != nil {
		return "", nil, false
	}
	return mediaType, data, true
}

// Stop halts the readout timer
func (c *ParkingController) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
}

func (c *ParkingController) snapshotLocked() models.Snapshot {
	snap := models.Snapshot{
		State: c.state,
		View:  models.ViewFor(c.state, c.record),
	}
	if c.state != models.StateHasRecord {
		return snap
	}

	snap.Record = c.record
	readout := ComputeReadout(c.record.Timestamp, c.now(), c.thresholds)
	snap.Readout = &readout

	if lat, lon, ok := c.record.Location(); ok {
		snap.Map = &models.MapWidget{
			Latitude:    lat,
			Longitude:   lon,
			InstanceKey: c.mapKey,
			MapsURL:     GoogleMapsURL(lat, lon),
			Label:       FormatCoordinates(lat, lon),
		}
	}
	return snap
}

func (c *ParkingController) enterHasRecordLocked(record *models.ParkingRecord) {
	var shown *models.ParkingRecord
	if c.state == models.StateHasRecord {
		shown = c.record
	}
	if !models.SameLocation(shown, record) {
		c.mapKey++
	}

	c.state = models.StateHasRecord
	c.record = record
	c.startTimerLocked()
	c.publishStateLocked()
}

func (c *ParkingController) enterNoRecordLocked() {
	if c.state == models.StateHasRecord && c.record.HasLocation() {
		c.mapKey++
	}

	c.stopTimerLocked()
	c.state = models.StateNoRecord
	c.record = nil
	c.publishStateLocked()
}

func (c *ParkingController) publishStateLocked() {
	c.notifier.Notify(WSTypeStateChanged, models.SnapshotToResponse(c.snapshotLocked(), ""))
}

func (c *ParkingController) startTimerLocked() {
	c.stopTimerLocked()
	stop := make(chan struct{})
	c.timer = stop
	ticks, stopTicker := c.newTicker(c.tick)
	go c.runTimer(stop, ticks, stopTicker)
}

func (c *ParkingController) stopTimerLocked() {
	if c.timer != nil {
		close(c.timer)
		c.timer = nil
	}
}

func (c *ParkingController) runTimer(stop chan struct{}, ticks <-chan time.Time, stopTicker func()) {
	defer stopTicker()

	for {
		select {
		case <-stop:
			return
		case <-ticks:
			if !c.publishReadout(stop) {
				return
			}
		}
	}
}

// publishReadout emits one readout unless this timer has been replaced
func (c *ParkingController) publishReadout(stop chan struct{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != stop || c.state != models.StateHasRecord {
		return false
	}
	readout := ComputeReadout(c.record.Timestamp, c.now(), c.thresholds)
	c.notifier.Notify(WSTypeReadout, readout)
	return true
}
