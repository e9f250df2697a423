package p2p

import (
	"encoding/json"
	"net"
	"time"

	"github.com/sciencefidelity/himalia/internal/log"
)

// writeTimeout bounds how long a send blocks before giving up on the peer.
const writeTimeout = 1 * time.Second

// sendPackage dials addr and writes pkg as a single JSON document. On dial
// failure addr is evicted from peers immediately rather than retried.
func (s *Server) sendPackage(addr string, pkg Package) {
	conn, err := net.DialTimeout("tcp", addr, writeTimeout)
	if err != nil {
		log.L.WithField("peer", addr).Warn("peer unreachable, evicting")
		s.peers.Remove(addr)
		return
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		log.L.WithError(err).Warn("set write deadline")
		return
	}
	if err := json.NewEncoder(conn).Encode(pkg); err != nil {
		log.L.WithError(err).WithField("peer", addr).Warn("send failed")
	}
}

func (s *Server) sendVersion(addr string) {
	height, err := s.chain.GetBestHeight()
	if err != nil {
		height = 0
	}
	s.sendPackage(addr, Package{
		Kind: KindVersion,
		Version: &VersionPayload{
			Version:    NodeVersion,
			BestHeight: height,
			AddrFrom:   s.selfAddr,
		},
	})
}

func (s *Server) sendGetBlocks(addr string) {
	s.sendPackage(addr, Package{
		Kind:      KindGetBlocks,
		GetBlocks: &GetBlocksPayload{AddrFrom: s.selfAddr},
	})
}

func (s *Server) sendInv(addr string, kind InventoryKind, items [][]byte) {
	s.sendPackage(addr, Package{
		Kind: KindInv,
		Inv:  &InvPayload{AddrFrom: s.selfAddr, Kind: kind, Items: items},
	})
}

func (s *Server) sendGetData(addr string, kind InventoryKind, id []byte) {
	s.sendPackage(addr, Package{
		Kind:    KindGetData,
		GetData: &GetDataPayload{AddrFrom: s.selfAddr, Kind: kind, ID: id},
	})
}

func (s *Server) sendBlock(addr string, blockBytes []byte) {
	s.sendPackage(addr, Package{
		Kind:  KindBlock,
		Block: &BlockPayload{AddrFrom: s.selfAddr, Block: blockBytes},
	})
}

// SendTx broadcasts a transaction's serialized bytes to addr. Exported so
// CLI send command can hand a freshly created transaction to a miner node
// without going through the mempool first.
func (s *Server) SendTx(addr string, txBytes []byte) {
	s.sendPackage(addr, Package{
		Kind: KindTx,
		Tx:   &TxPayload{AddrFrom: s.selfAddr, Transaction: txBytes},
	})
}
