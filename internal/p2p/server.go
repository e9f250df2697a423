// Package p2p implements the gossip protocol peers use to exchange blocks
// and transactions: a version handshake, inventory advertisement, and
// fetch-by-id, framed as JSON Package values streamed over plain TCP
// connections, with all per-node state held on a Server value instead of
// package-level globals.
package p2p

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"

	"github.com/sciencefidelity/himalia/internal/chain"
	"github.com/sciencefidelity/himalia/internal/log"
	"github.com/sciencefidelity/himalia/internal/nodecfg"
)

// NodeVersion is this protocol's version number, exchanged during handshake.
const NodeVersion = 1

// DefaultCentralNode is the hard-coded bootstrap address every fresh node
// dials first. Himalia has no peer discovery beyond this single seed.
const DefaultCentralNode = "127.0.0.1:2001"

// Server holds everything a running node needs to answer peer requests: its
// chain, its derived UTXO index, its pending-transaction pool, and the set
// of peers it currently knows about.
type Server struct {
	selfAddr    string
	centralAddr string
	cfg         *nodecfg.Config

	chain  *chain.Blockchain
	utxo   *chain.UTXOSet
	pool   *chain.Mempool
	transit *chain.BlocksInTransit
	peers  *Registry
}

// New builds a Server bound to bc/utxo/cfg, listening as cfg.NodeAddress()
// and bootstrapping against centralAddr.
func New(bc *chain.Blockchain, utxo *chain.UTXOSet, cfg *nodecfg.Config, centralAddr string) *Server {
	return &Server{
		selfAddr:    cfg.NodeAddress(),
		centralAddr: centralAddr,
		cfg:         cfg,
		chain:       bc,
		utxo:        utxo,
		pool:        chain.NewMempool(),
		transit:     chain.NewBlocksInTransit(),
		peers:       NewRegistry(centralAddr),
	}
}

// ListenAndServe opens a listener on s.selfAddr and serves connections until
// the listener errors or the process exits. If this node isn't the central
// node, it first announces itself by sending Version to the central node.
func (s *Server) ListenAndServe() error {
	listener, err := net.Listen("tcp", s.selfAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.selfAddr, err)
	}
	defer listener.Close()
	return s.Serve(listener)
}

// Serve accepts and handles connections from an already-bound listener.
// Split out from ListenAndServe so tests can bind an ephemeral port
// themselves and hand the listener in directly.
func (s *Server) Serve(listener net.Listener) error {
	log.L.WithField("addr", s.selfAddr).Info("node listening")

	if s.selfAddr != s.centralAddr {
		s.sendVersion(s.centralAddr)
	}

	for {
		conn, err := listener.Accept()
		if err != nil {
			return fmt.Errorf("accept: %w", err)
		}
		go s.handleConn(conn)
	}
}

// handleConn decodes every Package a peer sends on conn, one connection per
// request, dispatching each to the handler for its Kind.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	decoder := json.NewDecoder(conn)
	for {
		var pkg Package
		if err := decoder.Decode(&pkg); err != nil {
			return
		}

		switch pkg.Kind {
		case KindVersion:
			s.handleVersion(pkg.Version)
		case KindGetBlocks:
			s.handleGetBlocks(pkg.GetBlocks)
		case KindInv:
			s.handleInv(pkg.Inv)
		case KindGetData:
			s.handleGetData(pkg.GetData)
		case KindBlock:
			s.handleBlock(pkg.Block)
		case KindTx:
			s.handleTx(pkg.Tx)
		default:
			log.L.WithField("kind", pkg.Kind).Warn("unknown package kind")
		}
	}
}

func (s *Server) handleVersion(p *VersionPayload) {
	if p == nil {
		return
	}
	localHeight, err := s.chain.GetBestHeight()
	if err != nil {
		log.L.WithError(err).Warn("get best height")
		return
	}

	if localHeight < p.BestHeight {
		s.sendGetBlocks(p.AddrFrom)
	} else if localHeight > p.BestHeight {
		s.sendVersion(p.AddrFrom)
	}

	if !s.peers.Contains(p.AddrFrom) {
		s.peers.Add(p.AddrFrom)
	}
}

func (s *Server) handleGetBlocks(p *GetBlocksPayload) {
	if p == nil {
		return
	}
	hashes := s.chain.GetBlockHashes()
	s.sendInv(p.AddrFrom, InventoryBlock, hashes)
}

func (s *Server) handleInv(p *InvPayload) {
	if p == nil || len(p.Items) == 0 {
		return
	}

	switch p.Kind {
	case InventoryBlock:
		s.transit.Add(p.Items)
		firstHash := p.Items[0]
		s.sendGetData(p.AddrFrom, InventoryBlock, firstHash)
		s.transit.Remove(firstHash)
	case InventoryTransaction:
		txID := p.Items[0]
		if !s.pool.Contains(txID) {
			s.sendGetData(p.AddrFrom, InventoryTransaction, txID)
		}
	}
}

func (s *Server) handleGetData(p *GetDataPayload) {
	if p == nil {
		return
	}

	switch p.Kind {
	case InventoryBlock:
		block, err := s.chain.GetBlock(hex.EncodeToString(p.ID))
		if err != nil {
			log.L.WithError(err).Warn("get requested block")
			return
		}
		s.sendBlock(p.AddrFrom, block.Serialize())
	case InventoryTransaction:
		tx, ok := s.pool.Get(p.ID)
		if !ok {
			return
		}
		s.SendTx(p.AddrFrom, tx.Serialize())
	}
}

func (s *Server) handleBlock(p *BlockPayload) {
	if p == nil {
		return
	}
	block := chain.DeserializeBlock(p.Block)

	if err := s.chain.AddBlock(block); err != nil {
		log.L.WithError(err).Warn("add received block")
		return
	}
	log.L.WithField("hash", block.Hash).Info("received block")

	if next := s.transit.First(); next != nil {
		s.sendGetData(p.AddrFrom, InventoryBlock, next)
		s.transit.Remove(next)
		return
	}

	// Nothing left in transit: either this was a standalone new block or the
	// last of a catch-up batch. Blocks advertised via getblocks/inv arrive
	// newest-first, so a multi-block batch gets applied tip-to-genesis —
	// incrementally updating the UTXO index in that order would try to
	// remove spent outputs before the blocks that created them ever land.
	// Rebuilding from the chain once the batch is fully applied sidesteps
	// the ordering requirement entirely.
	if err := s.utxo.Reindex(); err != nil {
		log.L.WithError(err).Warn("reindex utxo index after receiving block")
	}
}

func (s *Server) handleTx(p *TxPayload) {
	if p == nil {
		return
	}
	tx := chain.DeserializeTransaction(p.Transaction)
	if ok, err := s.chain.VerifyTransaction(&tx); err != nil || !ok {
		log.L.WithField("tx", hex.EncodeToString(tx.ID)).Warn("rejecting invalid transaction from peer")
		return
	}
	s.pool.Add(&tx)

	if s.selfAddr == s.centralAddr {
		for _, peer := range s.peers.All() {
			if peer != s.selfAddr && peer != p.AddrFrom {
				s.sendInv(peer, InventoryTransaction, [][]byte{tx.ID})
			}
		}
		return
	}

	miningAddr, mining := s.cfg.MiningAddress()
	if !mining || s.pool.Len() < chain.TransactionThreshold {
		return
	}

	for s.pool.Len() >= chain.TransactionThreshold {
		if !s.mineOnce(miningAddr) {
			break
		}
	}
}

// mineOnce verifies every pending transaction, mines a block with the
// verified ones plus a fresh coinbase, and broadcasts the result. Reports
// whether a block was mined.
func (s *Server) mineOnce(miningAddr string) bool {
	var verified []*chain.Transaction
	for _, candidate := range s.pool.GetAll() {
		ok, err := s.chain.VerifyTransaction(candidate)
		if err != nil || !ok {
			log.L.WithField("tx", hex.EncodeToString(candidate.ID)).Warn("dropping invalid pending transaction")
			s.pool.Remove(candidate.ID)
			continue
		}
		verified = append(verified, candidate)
	}
	if len(verified) == 0 {
		log.L.Info("no valid pending transactions, nothing to mine")
		return false
	}

	coinbase := chain.NewCoinbaseTx(miningAddr)
	verified = append(verified, coinbase)

	block, err := s.chain.MineBlock(verified)
	if err != nil {
		log.L.WithError(err).Warn("mine block")
		return false
	}
	if err := s.utxo.Update(block); err != nil {
		log.L.WithError(err).Warn("update utxo index after mining")
	}

	for _, tx := range verified {
		s.pool.Remove(tx.ID)
	}

	for _, peer := range s.peers.All() {
		if peer != s.selfAddr {
			s.sendInv(peer, InventoryBlock, [][]byte{block.HashBytes()})
		}
	}
	log.L.WithFields(map[string]interface{}{"hash": block.Hash, "txs": len(verified)}).Info("mined block from pending pool")
	return true
}
