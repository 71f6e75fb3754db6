package update

// Kind discriminates the State variants.
type Kind int

const (
	KindIdle Kind = iota
	KindChecking
	KindUpdateAvailable
	KindUpToDate
	KindDownloading
	KindReadyToInstall
	KindError
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindIdle:
		return "idle"
	case KindChecking:
		return "checking"
	case KindUpdateAvailable:
		return "update-available"
	case KindUpToDate:
		return "up-to-date"
	case KindDownloading:
		return "downloading"
	case KindReadyToInstall:
		return "ready-to-install"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// State is the current position of an Updater in its lifecycle.
//
// The set of implementations is closed: Idle, Checking, UpdateAvailable,
// UpToDate, Downloading, ReadyToInstall and Failure. Switch on the concrete
// type or on Kind().
type State interface {
	Kind() Kind
	state()
}

// Idle is the initial state and the state after Reset.
type Idle struct{}

// Checking means a release fetch is in flight.
type Checking struct{}

// UpdateAvailable carries the selected release and its matched asset.
type UpdateAvailable struct {
	Release Release
	Asset   ReleaseAsset
}

// UpToDate means no eligible newer release was found.
type UpToDate struct{}

// Downloading reports transfer progress. Progress is BytesDone/BytesTotal
// when the total is known and 0 otherwise; it is not clamped.
type Downloading struct {
	Progress   float64
	BytesDone  int64
	BytesTotal int64
}

// ReadyToInstall holds the local path of the downloaded asset.
type ReadyToInstall struct {
	Path string
}

// Failure is the error state. Message is a short human-readable summary;
// Cause keeps the underlying error for diagnostics.
type Failure struct {
	Message string
	Cause   error
}

func (Idle) Kind() Kind            { return KindIdle }
func (Checking) Kind() Kind        { return KindChecking }
func (UpdateAvailable) Kind() Kind { return KindUpdateAvailable }
func (UpToDate) Kind() Kind        { return KindUpToDate }
func (Downloading) Kind() Kind     { return KindDownloading }
func (ReadyToInstall) Kind() Kind  { return KindReadyToInstall }
func (Failure) Kind() Kind         { return KindError }

func (Idle) state()            {}
func (Checking) state()        {}
func (UpdateAvailable) state() {}
func (UpToDate) state()        {}
func (Downloading) state()     {}
func (ReadyToInstall) state()  {}
func (Failure) state()         {}

// progressOf computes the download fraction without dividing by zero.
func progressOf(done, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(done) / float64(total)
}
