package enum

type EntityType string

const (
	TRANSACTION EntityType = "TRANSACTION"
)

func (entityType EntityType) String() string {
	return string(entityType)
}
