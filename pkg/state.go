package pkg

// GeneralState is the three-value projection every WorkerState maps to
// via ToGeneralState (§4.1).
type GeneralState int

const (
	GeneralUnknown GeneralState = iota
	GeneralRunning
	GeneralStopped
)

func (g GeneralState) String() string {
	switch g {
	case GeneralRunning:
		return "Running"
	case GeneralStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// WorkerState is the fine-grained state a worker reports to the
// supervisor. Each worker defines its own richer state enum internally
// (see pkg/ngcontrol, pkg/rntimatcher, pkg/downloader) and reports one
// of these coarse values on its status channel.
type WorkerState struct {
	Name  string
	Phase string // worker-specific sub-state, for logging only
	State GeneralState
}

// ToGeneralState returns the coarse projection used by the supervisor.
func (w WorkerState) ToGeneralState() GeneralState {
	return w.State
}

// MainState is the application-wide state the Supervisor broadcasts.
type MainState int

const (
	MainInit MainState = iota
	MainRunning
	MainNotifyStop
	MainStopped
)

func (m MainState) String() string {
	switch m {
	case MainRunning:
		return "Running"
	case MainNotifyStop:
		return "NotifyStop"
	case MainStopped:
		return "Stopped"
	default:
		return "Init"
	}
}
