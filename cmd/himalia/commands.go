package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sciencefidelity/himalia/internal/boltstore"
	"github.com/sciencefidelity/himalia/internal/chain"
	"github.com/sciencefidelity/himalia/internal/log"
	"github.com/sciencefidelity/himalia/internal/nodecfg"
	"github.com/sciencefidelity/himalia/internal/p2p"
	"github.com/sciencefidelity/himalia/internal/walletstore"
)

func storePath() string {
	return filepath.Join(dataDir, blockchainFile)
}

func openStore() (*boltstore.Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return boltstore.Open(storePath())
}

func mustValidAddress(address string) {
	if !chain.ValidateAddress(address) {
		log.L.Fatalf("address %q fails its checksum", address)
	}
}

func newCreateBlockchainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "createblockchain ADDRESS",
		Short: "Create store and genesis block, reindex UTXO",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			address := args[0]
			mustValidAddress(address)

			store, err := openStore()
			if err != nil {
				log.L.Fatal(err)
			}
			defer store.Close()

			bc, err := chain.CreateBlockchain(store, address)
			if err != nil {
				log.L.Fatal(err)
			}

			utxo := chain.NewUTXOSet(bc, store)
			if err := utxo.Reindex(); err != nil {
				log.L.Fatal(err)
			}
			fmt.Println("Done!")
		},
	}
}

func newCreateWalletCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "createwallet",
		Short: "Generate a key pair, append to the wallet file, print the address",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			ws, err := walletstore.Open(walletstore.DefaultFile)
			if err != nil {
				log.L.Fatal(err)
			}
			address := ws.CreateWallet()
			if err := ws.Save(); err != nil {
				log.L.Fatal(err)
			}
			fmt.Printf("Your new address: %s\n", address)
		},
	}
}

func newGetBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "getbalance ADDRESS",
		Short: "Print the balance of unspent outputs locked to ADDRESS",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			address := args[0]
			mustValidAddress(address)

			store, err := openStore()
			if err != nil {
				log.L.Fatal(err)
			}
			defer store.Close()

			bc, err := chain.OpenBlockchain(store)
			if err != nil {
				log.L.Fatal(err)
			}
			utxo := chain.NewUTXOSet(bc, store)

			pubKeyHash := chain.PubKeyHashFromAddress(address)
			var balance int32
			for _, out := range utxo.FindUTXO(pubKeyHash) {
				balance += out.Value
			}
			fmt.Printf("Balance of %s, %d\n", address, balance)
		},
	}
}

func newListAddressesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listaddresses",
		Short: "Print each wallet address on its own line",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			ws, err := walletstore.Open(walletstore.DefaultFile)
			if err != nil {
				log.L.Fatal(err)
			}
			for _, address := range ws.Addresses() {
				fmt.Println(address)
			}
		},
	}
}

func newSendCmd() *cobra.Command {
	var mine bool
	cmd := &cobra.Command{
		Use:   "send FROM TO AMOUNT",
		Short: "Create a signed transaction, mining locally if --mine is set",
		Args:  cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			from, to := args[0], args[1]
			mustValidAddress(from)
			mustValidAddress(to)
			var amount int32
			if _, err := fmt.Sscanf(args[2], "%d", &amount); err != nil {
				log.L.Fatalf("invalid amount %q", args[2])
			}

			store, err := openStore()
			if err != nil {
				log.L.Fatal(err)
			}
			defer store.Close()

			bc, err := chain.OpenBlockchain(store)
			if err != nil {
				log.L.Fatal(err)
			}
			utxo := chain.NewUTXOSet(bc, store)

			ws, err := walletstore.Open(walletstore.DefaultFile)
			if err != nil {
				log.L.Fatal(err)
			}
			wallet, ok := ws.GetWallet(from)
			if !ok {
				log.L.Fatalf("no wallet for address %s", from)
			}

			tx, err := chain.NewUTXOTransaction(wallet, to, amount, utxo, bc)
			if err != nil {
				log.L.Fatal(err)
			}

			if mine {
				coinbase := chain.NewCoinbaseTx(from)
				block, err := bc.MineBlock([]*chain.Transaction{tx, coinbase})
				if err != nil {
					log.L.Fatal(err)
				}
				if err := utxo.Update(block); err != nil {
					log.L.Fatal(err)
				}
				fmt.Println("Success!")
				return
			}

			selfAddr := viper.GetString("node_address")
			nodeCfg := nodecfg.New(selfAddr, "")
			server := p2p.New(bc, utxo, nodeCfg, p2p.DefaultCentralNode)
			server.SendTx(p2p.DefaultCentralNode, tx.Serialize())
			fmt.Println("Sent to network, awaiting confirmation.")
		},
	}
	cmd.Flags().BoolVar(&mine, "mine", false, "mine the transaction locally instead of broadcasting it")
	return cmd
}

func newPrintChainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "printchain",
		Short: "Iterate the chain tip to genesis, printing each block and transaction",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			store, err := openStore()
			if err != nil {
				log.L.Fatal(err)
			}
			defer store.Close()

			bc, err := chain.OpenBlockchain(store)
			if err != nil {
				log.L.Fatal(err)
			}

			it := bc.Iterator()
			for {
				block, ok := it.Next()
				if !ok {
					break
				}
				fmt.Printf("Height: %d\n", block.Height)
				fmt.Printf("Hash: %s\n", block.Hash)
				fmt.Printf("Prev. hash: %s\n", block.PrevBlockHash)
				for _, tx := range block.Transactions {
					fmt.Println(tx.String())
				}
				fmt.Println()
			}
		},
	}
}

func newReindexUTXOCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindexutxo",
		Short: "Rebuild the chainstate index and print how many transactions carry unspent outputs",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			store, err := openStore()
			if err != nil {
				log.L.Fatal(err)
			}
			defer store.Close()

			bc, err := chain.OpenBlockchain(store)
			if err != nil {
				log.L.Fatal(err)
			}
			utxo := chain.NewUTXOSet(bc, store)
			if err := utxo.Reindex(); err != nil {
				log.L.Fatal(err)
			}

			count, err := utxo.CountTransactions()
			if err != nil {
				log.L.Fatal(err)
			}
			fmt.Printf("Done! There are %d transactions in the UTXO set.\n", count)
		},
	}
}

func newStartNodeCmd() *cobra.Command {
	var minerAddress string
	cmd := &cobra.Command{
		Use:   "startnode",
		Short: "Start the P2P server on NODE_ADDRESS",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			selfAddr := viper.GetString("node_address")

			if minerAddress != "" {
				mustValidAddress(minerAddress)
			}

			store, err := openStore()
			if err != nil {
				log.L.Fatal(err)
			}
			defer store.Close()

			bc, err := chain.OpenBlockchain(store)
			if err != nil {
				log.L.Fatal(err)
			}
			utxo := chain.NewUTXOSet(bc, store)

			cfg := nodecfg.New(selfAddr, minerAddress)
			server := p2p.New(bc, utxo, cfg, p2p.DefaultCentralNode)
			if err := server.ListenAndServe(); err != nil {
				log.L.Fatal(err)
			}
		},
	}
	cmd.Flags().StringVar(&minerAddress, "miner", "", "address coinbase rewards are paid to; enables mining")
	return cmd
}
