package systems

import (
	"fmt"
	"sort"

	"github.com/spaghettifunk/triframe/engine/core"
	"github.com/spaghettifunk/triframe/engine/renderer/gpu"
)

/** @brief Configuration for the pipeline system. */
type PipelineSystemConfig struct {
	/** @brief The maximum number of pipeline states held in the system. */
	MaxPipelineCount uint16
}

// PipelineSystem is the pipeline state catalog: name -> opaque handle.
// Root signatures are registered here too so passes can look them up.
type PipelineSystem struct {
	// This system's configuration.
	Config *PipelineSystemConfig
	// A lookup table for pipeline name->state
	Lookup         map[string]gpu.PipelineState
	RootSignatures map[string]gpu.RootSignature
	device         gpu.Device
}

func NewPipelineSystem(config *PipelineSystemConfig, device gpu.Device) (*PipelineSystem, error) {
	if config.MaxPipelineCount == 0 {
		err := fmt.Errorf("NewPipelineSystem - config.MaxPipelineCount must be greater than 0")
		core.LogError(err.Error())
		return nil, err
	}
	return &PipelineSystem{
		Config:         config,
		Lookup:         make(map[string]gpu.PipelineState),
		RootSignatures: make(map[string]gpu.RootSignature),
		device:         device,
	}, nil
}

func (ps *PipelineSystem) CreateRootSignature(desc gpu.RootSignatureDesc) (gpu.RootSignature, error) {
	if _, ok := ps.RootSignatures[desc.Name]; ok {
		return nil, fmt.Errorf("root signature '%s' already exists", desc.Name)
	}
	rs, err := ps.device.CreateRootSignature(desc)
	if err != nil {
		return nil, err
	}
	ps.RootSignatures[desc.Name] = rs
	return rs, nil
}

func (ps *PipelineSystem) RootSignature(name string) (gpu.RootSignature, error) {
	rs, ok := ps.RootSignatures[name]
	if !ok {
		return nil, fmt.Errorf("%w: root signature '%s'", core.ErrUnknownPipelineState, name)
	}
	return rs, nil
}

func (ps *PipelineSystem) Create(desc gpu.PipelineDesc) (gpu.PipelineState, error) {
	if _, ok := ps.Lookup[desc.Name]; ok {
		return nil, fmt.Errorf("pipeline state '%s' already exists", desc.Name)
	}
	if len(ps.Lookup) >= int(ps.Config.MaxPipelineCount) {
		err := fmt.Errorf("%w: pipeline state '%s', max %d", core.ErrCapacityExceeded, desc.Name, ps.Config.MaxPipelineCount)
		core.LogWarn(err.Error())
		return nil, err
	}
	state, err := ps.device.CreatePipelineState(desc)
	if err != nil {
		return nil, err
	}
	ps.Lookup[desc.Name] = state
	core.LogDebug("pipeline state '%s' created", desc.Name)
	return state, nil
}

func (ps *PipelineSystem) Get(name string) (gpu.PipelineState, error) {
	state, ok := ps.Lookup[name]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", core.ErrUnknownPipelineState, name)
	}
	return state, nil
}

// Names lists the registered pipeline states in lexical order.
func (ps *PipelineSystem) Names() []string {
	names := make([]string, 0, len(ps.Lookup))
	for n := range ps.Lookup {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (ps *PipelineSystem) Shutdown() error {
	ps.Lookup = make(map[string]gpu.PipelineState)
	ps.RootSignatures = make(map[string]gpu.RootSignature)
	return nil
}
