package interfaces

import (
	"context"

	"github.com/customeros/txwatch/dto"
)

type Processor interface {
	RunCycle(ctx context.Context) (*dto.CycleReport, error)
	Status() dto.ProcessorStatus
}
