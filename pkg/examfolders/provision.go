package examfolders

import (
	"context"
	"log/slog"
)

// State is a stage of the provision workflow
type State int

const (
	StateIdle State = iota
	StateConfigValidated
	StateConnectivityVerified
	StatePlanning
	StateMaterializing
	StateDone
	StatePartiallyFailed
	// StateFailed is reached when configuration or connectivity checks fail;
	// nothing has been written.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfigValidated:
		return "config_validated"
	case StateConnectivityVerified:
		return "connectivity_verified"
	case StatePlanning:
		return "planning"
	case StateMaterializing:
		return "materializing"
	case StateDone:
		return "done"
	case StatePartiallyFailed:
		return "partially_failed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// BaseFolderDescription is recorded on the base folder marker
const BaseFolderDescription = "Patient Y Physical Examination Folders"

// ProvisionOptions configures a provision run
type ProvisionOptions struct {
	// DryRun stops after planning without writing anything
	DryRun bool

	// SkipProbe skips the connectivity probe. Configuration is still checked.
	SkipProbe bool

	// OnTransition is called on every state change (optional)
	OnTransition func(from, to State)
}

// ProvisionReport summarises a provision run
type ProvisionReport struct {
	State  State           `json:"state"`
	Probe  *ProbeReport    `json:"probe,omitempty"`
	Plan   []PlannedFolder `json:"plan,omitempty"`
	Result *BatchResult    `json:"result,omitempty"`
}

// Provisioner drives the provision workflow:
// idle, config validated, connectivity verified, planning, materializing, then
// done or partially failed.
type Provisioner struct {
	probe    *Probe
	config   ConfigChecker
	markers  *MarkerManager
	basePath string
	logger   *slog.Logger
}

// NewProvisioner creates a Provisioner
func NewProvisioner(probe *Probe, config ConfigChecker, markers *MarkerManager, basePath string, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioner{probe: probe, config: config, markers: markers, basePath: basePath, logger: logger}
}

// Run provisions taxonomy under the base path. The returned error is non-nil
// only for fatal configuration or connectivity failures; partial marker failures
// are reported through the result and StatePartiallyFailed.
func (p *Provisioner) Run(ctx context.Context, taxonomy Branch, opts ProvisionOptions) (*ProvisionReport, error) {
	report := &ProvisionReport{State: StateIdle}
	move := func(to State) {
		from := report.State
		report.State = to
		p.logger.Debug("Provision state changed", "from", from, "to", to)
		if opts.OnTransition != nil {
			opts.OnTransition(from, to)
		}
	}

	if p.config != nil {
		if missing := p.config.MissingSettings(); len(missing) > 0 {
			move(StateFailed)
			return report, &ConfigurationError{Missing: missing}
		}
	}
	move(StateConfigValidated)

	if !opts.SkipProbe && p.probe != nil {
		report.Probe = p.probe.Run(ctx)
		if !report.Probe.OK {
			move(StateFailed)
			return report, report.Probe.Err
		}
	}
	move(StateConnectivityVerified)

	move(StatePlanning)
	if err := ValidateTaxonomy(taxonomy); err != nil {
		move(StateFailed)
		return report, err
	}
	report.Plan = Plan(taxonomy, p.basePath)
	p.logger.Info("Planned folder structure", "base_path", p.basePath, "folders", len(report.Plan))

	if opts.DryRun {
		move(StateDone)
		return report, nil
	}

	move(StateMaterializing)
	batch := make([]PlannedFolder, 0, len(report.Plan)+1)
	batch = append(batch, PlannedFolder{
		Path:          joinKey(p.basePath),
		OriginalName:  p.basePath,
		SanitizedName: joinKey(p.basePath),
		Depth:         0,
		Description:   BaseFolderDescription,
	})
	batch = append(batch, report.Plan...)
	report.Result = p.markers.Materialize(ctx, batch)

	if report.Result.OK() {
		move(StateDone)
	} else {
		move(StatePartiallyFailed)
	}
	return report, nil
}
