package scheduler

import (
	"encoding/json"
	"fmt"
	"math"
)

// Resource field keys accepted by ValidateResources.
const (
	FieldNumCpus               = "num_cpus"
	FieldMemoryMB              = "memory_mb"
	FieldNumMachines           = "num_machines"
	FieldNumMpiprocsPerMachine = "num_mpiprocs_per_machine"
)

// ResourceFields is the raw, untyped resource request of a job template,
// typically decoded from YAML or JSON.
type ResourceFields map[string]any

// JobResource is a validated resource request. It is immutable: build it with
// ValidateResources or NewJobResource and read it through its methods.
type JobResource struct {
	numCpus  int
	memoryMB *int
}

// NewJobResource builds a JobResource from typed values.
// A nil memoryMB means "use all memory available on the worker".
func NewJobResource(numCpus int, memoryMB *int) (*JobResource, error) {
	if numCpus < 1 {
		return nil, NewValidationError(FieldNumCpus, "num_cpus must be a positive integer")
	}
	r := &JobResource{numCpus: numCpus}
	if memoryMB != nil {
		if *memoryMB < 0 {
			return nil, NewValidationError(FieldMemoryMB, "memory_mb must not be negative")
		}
		mem := *memoryMB
		r.memoryMB = &mem
	}
	return r, nil
}

// NumCpus returns the number of CPUs requested for the single HQ task.
func (r *JobResource) NumCpus() int { return r.numCpus }

// Memory returns the requested memory in MB and whether it was specified at all.
func (r *JobResource) Memory() (int, bool) {
	if r.memoryMB == nil {
		return 0, false
	}
	return *r.memoryMB, true
}

func (r *JobResource) String() string {
	if mem, ok := r.Memory(); ok {
		return fmt.Sprintf("cpus=%d mem=%dMB", r.numCpus, mem)
	}
	return fmt.Sprintf("cpus=%d mem=all", r.numCpus)
}

// ValidateResources validates raw resource fields into a JobResource.
//
// num_cpus is preferred. Without it, the legacy pair num_machines and
// num_mpiprocs_per_machine (defaulting to 1) is multiplied; that path still
// succeeds but returns a deprecation notice. Notices never change the result.
func ValidateResources(fields ResourceFields) (*JobResource, []string, error) {
	var notices []string

	numCpus, err := resolveNumCpus(fields, &notices)
	if err != nil {
		return nil, nil, err
	}

	var memoryMB *int
	if raw, ok := fields[FieldMemoryMB]; ok && raw != nil {
		mem, ok := asInt(raw)
		if !ok {
			return nil, nil, NewValidationError(FieldMemoryMB, "memory_mb must be an integer")
		}
		memoryMB = &mem
	}

	res, err := NewJobResource(numCpus, memoryMB)
	if err != nil {
		return nil, nil, err
	}
	return res, notices, nil
}

func resolveNumCpus(fields ResourceFields, notices *[]string) (int, error) {
	if raw, ok := fields[FieldNumCpus]; ok && raw != nil {
		n, ok := asInt(raw)
		if !ok {
			return 0, NewValidationError(FieldNumCpus, "num_cpus must be an integer")
		}
		return n, nil
	}

	rawMachines, ok := fields[FieldNumMachines]
	if !ok || rawMachines == nil {
		return 0, NewValidationError(FieldNumCpus, "missing required resource fields")
	}
	machines, ok := asInt(rawMachines)
	if !ok {
		return 0, NewValidationError(FieldNumMachines, "num_machines must be an integer")
	}
	if machines < 1 {
		return 0, NewValidationError(FieldNumMachines, "num_machines must be a positive integer")
	}

	perMachine := 1
	if raw, ok := fields[FieldNumMpiprocsPerMachine]; ok && raw != nil {
		perMachine, ok = asInt(raw)
		if !ok {
			return 0, NewValidationError(FieldNumMpiprocsPerMachine, "num_mpiprocs_per_machine must be an integer")
		}
		if perMachine < 1 {
			return 0, NewValidationError(FieldNumMpiprocsPerMachine, "num_mpiprocs_per_machine must be a positive integer")
		}
	}
	if machines > math.MaxInt/perMachine {
		return 0, NewValidationError(FieldNumCpus, "num_machines * num_mpiprocs_per_machine overflows")
	}

	*notices = append(*notices, fmt.Sprintf(
		"%s and %s are deprecated for HyperQueue, use %s (derived %s=%d)",
		FieldNumMachines, FieldNumMpiprocsPerMachine, FieldNumCpus, FieldNumCpus, machines*perMachine))
	return machines * perMachine, nil
}

// asInt accepts Go integer kinds plus integral float64/json.Number values,
// which is what YAML and JSON decoders hand back for whole numbers.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int(n), true
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		return 0, false
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
