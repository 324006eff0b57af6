package interfaces

import (
	"context"

	"github.com/user/creature-league/internal/types"
)

//go:generate go tool mockgen -source=game.go -destination=mocks/mocks.go -package=mocks

// SpeciesGateway defines the read-through data provider for creature records
type SpeciesGateway interface {
	GetSpecies(ctx context.Context, id int) (*types.Species, error)
	GetMove(ctx context.Context, idOrName string) (*types.Move, error)
	GetType(ctx context.Context, name string) (*types.TypeInfo, error)
	GetEvolutionChain(ctx context.Context, speciesID int) (*types.EvolutionNode, error)
	GetItem(ctx context.Context, idOrName string) (*types.Item, error)
	GetLocation(ctx context.Context, name string) (*types.Location, error)
}

// ActionExecutor defines the single entry point of the game engine
type ActionExecutor interface {
	ExecuteAction(ctx context.Context, req types.ActionRequest) (*types.ActionResult, error)
}
