package cnst

// Table names shared by the wire protocol and both stores.
const (
	TableUsuarios      = "usuarios"
	TableRegistros     = "registros"
	TableFotoRegistros = "foto_registros"
)

// TipoCliente is the two-valued launch category in client vocabulary.
type TipoCliente string

const (
	TipoEntrada TipoCliente = "entrada"
	TipoSaida   TipoCliente = "saida"
)

// TipoServidor is the same category in server vocabulary.
type TipoServidor string

const (
	TipoCompra TipoServidor = "COMPRA"
	TipoVenda  TipoServidor = "VENDA"
)

func (t TipoCliente) String() string {
	return string(t)
}

func (t TipoServidor) String() string {
	return string(t)
}

// DescricaoMinLen is the minimum length of a launch description.
const DescricaoMinLen = 5
