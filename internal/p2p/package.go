package p2p

// Kind tags which payload a Package carries. Packages are JSON-encoded and
// streamed back to back over the connection with a single json.Decoder per
// side, rather than length-prefixed or gob-framed.
type Kind string

const (
	KindVersion   Kind = "version"
	KindGetBlocks Kind = "getblocks"
	KindInv       Kind = "inv"
	KindGetData   Kind = "getdata"
	KindBlock     Kind = "block"
	KindTx        Kind = "tx"
)

// InventoryKind distinguishes what an Inv or GetData message is about.
type InventoryKind string

const (
	InventoryBlock       InventoryKind = "block"
	InventoryTransaction InventoryKind = "tx"
)

// Package is the single wire message type every Himalia peer exchanges.
// Exactly one of the payload fields is set, selected by Kind.
type Package struct {
	Kind Kind `json:"kind"`

	Version   *VersionPayload   `json:"version,omitempty"`
	GetBlocks *GetBlocksPayload `json:"get_blocks,omitempty"`
	Inv       *InvPayload       `json:"inv,omitempty"`
	GetData   *GetDataPayload   `json:"get_data,omitempty"`
	Block     *BlockPayload     `json:"block,omitempty"`
	Tx        *TxPayload        `json:"tx,omitempty"`
}

// VersionPayload announces the sender's chain height during the handshake.
type VersionPayload struct {
	Version    int    `json:"version"`
	BestHeight uint64 `json:"best_height"`
	AddrFrom   string `json:"addr_from"`
}

// GetBlocksPayload asks the peer for every block hash it has.
type GetBlocksPayload struct {
	AddrFrom string `json:"addr_from"`
}

// InvPayload advertises hashes the sender has, for the receiver to fetch
// with GetData.
type InvPayload struct {
	AddrFrom string        `json:"addr_from"`
	Kind     InventoryKind `json:"kind"`
	Items    [][]byte      `json:"items"`
}

// GetDataPayload requests a single block or transaction by id.
type GetDataPayload struct {
	AddrFrom string        `json:"addr_from"`
	Kind     InventoryKind `json:"kind"`
	ID       []byte        `json:"id"`
}

// BlockPayload carries one gob-serialized block.
type BlockPayload struct {
	AddrFrom string `json:"addr_from"`
	Block    []byte `json:"block"`
}

// TxPayload carries one gob-serialized transaction.
type TxPayload struct {
	AddrFrom    string `json:"addr_from"`
	Transaction []byte `json:"transaction"`
}
