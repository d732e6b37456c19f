package config

// Benchfile represents the structure of the bench.yaml manifest.
type Benchfile struct {
	Version   string                 `yaml:"version"`
	Workloads map[string]WorkloadDTO `yaml:"workloads"`
	Platforms map[string]PlatformDTO `yaml:"platforms"`
	Devices   map[string]DeviceDTO   `yaml:"devices"`
	Data      map[string]DataDTO     `yaml:"data"`
	Models    map[string]ModelDTO    `yaml:"models"`
	Tasks     map[string]TaskDTO     `yaml:"tasks"`
}

// WorkloadDTO declares an operation to benchmark.
type WorkloadDTO struct {
	Operation string            `yaml:"operation"`
	Params    map[string]string `yaml:"params"`
	Data      []string          `yaml:"data"`
	Models    []string          `yaml:"models"`
	Devices   []string          `yaml:"devices"`
}

// PlatformDTO declares a runtime.
type PlatformDTO struct {
	Capabilities []string `yaml:"capabilities"`
	Version      string   `yaml:"version"`
}

// DeviceDTO declares a hardware resource.
type DeviceDTO struct {
	Kind      string `yaml:"kind"`
	Capacity  int64  `yaml:"capacity"`
	Exclusive bool   `yaml:"exclusive"`
}

// DataDTO declares a data artifact.
type DataDTO struct {
	Source      string   `yaml:"source"`
	Recipe      string   `yaml:"recipe"`
	GeneratedBy []string `yaml:"generatedBy"`
}

// ModelDTO declares a model artifact.
type ModelDTO struct {
	Data   string            `yaml:"data"`
	Params map[string]string `yaml:"params"`
}

// TaskDTO binds a workload to parameters and a device requirement.
type TaskDTO struct {
	Workload string            `yaml:"workload"`
	Platform string            `yaml:"platform"`
	Params   map[string]string `yaml:"params"`
	Device   DeviceReqDTO      `yaml:"device"`
}

// DeviceReqDTO declares a task's device requirement.
type DeviceReqDTO struct {
	Kind      string `yaml:"kind"`
	Slots     int64  `yaml:"slots"`
	Exclusive bool   `yaml:"exclusive"`
}
