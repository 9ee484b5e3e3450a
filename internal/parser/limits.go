package parser

// Hard caps from the language spec's parser contract. Exceeding any of
// these is reported as an error diagnostic, never a crash.
const (
	MaxDiagnostics        = 64
	MaxTopLevelDecls      = 256
	MaxStatementsPerBlock = 256
	MaxArgsPerCall        = 64
	MaxParamsPerFn        = 32
	MaxFieldsPerAggregate = 64
	MaxReceiveArms        = 32
)
