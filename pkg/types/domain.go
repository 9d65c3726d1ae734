package types

// Model describes one servable model name in OpenAI listing format.
type Model struct {
	// Model name clients pass in the "model" field.
	// example: mock-gpt
	ID string `json:"id" example:"mock-gpt"`
	// Always "model".
	// example: model
	Object string `json:"object" example:"model"`
	// Creation time (unix seconds).
	// example: 1672531200
	Created int64 `json:"created" example:"1672531200"`
	// Organization that owns the model.
	// example: mock-organization
	OwnedBy string `json:"owned_by" example:"mock-organization"`
	// Always empty; kept for client compatibility.
	Permission []ModelPermission `json:"permission"`
	// Identity of the backend serving this name.
	// example: mock-gpt-1
	Root string `json:"root" example:"mock-gpt-1"`
	// Always null.
	Parent *string `json:"parent"`
}

// ModelPermission is accepted for schema compatibility; the gateway never
// populates it.
type ModelPermission struct {
	ID                 string  `json:"id"`
	Object             string  `json:"object"`
	Created            int64   `json:"created"`
	AllowCreateEngine  bool    `json:"allow_create_engine"`
	AllowSampling      bool    `json:"allow_sampling"`
	AllowLogprobs      bool    `json:"allow_logprobs"`
	AllowSearchIndices bool    `json:"allow_search_indices"`
	AllowView          bool    `json:"allow_view"`
	AllowFineTuning    bool    `json:"allow_fine_tuning"`
	Organization       string  `json:"organization"`
	Group              *string `json:"group"`
	IsBlocking         bool    `json:"is_blocking"`
}

// NewModel builds a listing entry with the fixed fields filled in.
func NewModel(id, ownedBy string, created int64, root string) Model {
	return Model{
		ID:         id,
		Object:     "model",
		Created:    created,
		OwnedBy:    ownedBy,
		Permission: []ModelPermission{},
		Root:       root,
	}
}

// ModelList is returned by GET /v1/models.
type ModelList struct {
	// Always "list".
	// example: list
	Object string  `json:"object" example:"list"`
	Data   []Model `json:"data"`
}

func NewModelList(models []Model) ModelList {
	if models == nil {
		models = []Model{}
	}
	return ModelList{Object: "list", Data: models}
}
