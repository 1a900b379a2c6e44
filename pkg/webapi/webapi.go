package webapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/tjstebbing/conductor"

	zledger "github.com/zchainfoundation/zledger/pkg"
)

// WebAPI implements conductor.Service
type WebAPI struct {
	api    zledger.API
	config zledger.Config
}

// interface guard ensures WebAPI implements conductor.Service
var _ conductor.Service = WebAPI{}

func NewWebAPI(config zledger.Config, api zledger.API) (WebAPI, error) {
	return WebAPI{api: api, config: config}, nil
}

func (t WebAPI) Run(started, stopped chan bool, stop chan context.Context) error {
	go func() {
		mux := t.createRouter()

		server := &http.Server{Addr: t.config.WebAPI.Bind + ":" + t.config.WebAPI.Port, Handler: mux}
		fmt.Printf("\nLedger API listening on %s:%s", t.config.WebAPI.Bind, t.config.WebAPI.Port)
		go func() {
			if err := server.ListenAndServe(); err != http.ErrServerClosed {
				log.Fatalf("HTTP server ListenAndServe: %v", err)
			}
		}()

		started <- true
		ctx := <-stop
		server.Shutdown(ctx)
		stopped <- true
	}()
	return nil
}

func (t WebAPI) createRouter() *httprouter.Router {
	mux := httprouter.New()

	// POST { transaction } /tx -> { tx_id } validate and apply a transparent transaction
	mux.POST("/tx", t.submitTransaction)

	// POST { shielded transaction } /shielded-tx -> { tx_id } validate and apply a shielded transaction
	mux.POST("/shielded-tx", t.submitShieldedTransaction)

	// POST { mining proof } /mining/proof -> { accepted, height } verify a puzzle solution and pay the miner
	mux.POST("/mining/proof", t.submitMiningProof)

	// GET /utxo/:txid/:vout -> { utxo } fetch one output, spent or not
	mux.GET("/utxo/:txid/:vout", t.getUTXO)

	// GET /difficulty -> { bits, target } current committed difficulty
	mux.GET("/difficulty", t.getDifficulty)

	// GET /reward/:height -> { height, subsidy } subsidy schedule lookup
	mux.GET("/reward/:height", t.getBlockReward)

	// GET /chain/position -> { position } current chain context
	mux.GET("/chain/position", t.getChainPosition)

	// POST { position } /admin/position -> { status } advance the chain context (block processor only)
	mux.POST("/admin/position", t.advancePosition)

	return mux
}

func (t WebAPI) submitTransaction(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var tx zledger.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		sendBadRequest(w, fmt.Sprintf("bad transaction body: %v", err))
		return
	}
	txID, err := t.api.SubmitTransaction(tx)
	if err != nil {
		sendError(w, "submitTransaction", err)
		return
	}
	sendResponse(w, map[string]any{"tx_id": txID})
}

func (t WebAPI) submitShieldedTransaction(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var tx zledger.ShieldedTransaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		sendBadRequest(w, fmt.Sprintf("bad shielded transaction body: %v", err))
		return
	}
	txID, err := t.api.SubmitShieldedTransaction(tx)
	if err != nil {
		sendError(w, "submitShieldedTransaction", err)
		return
	}
	sendResponse(w, map[string]any{"tx_id": txID})
}

func (t WebAPI) submitMiningProof(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var proof zledger.MiningProof
	if err := json.NewDecoder(r.Body).Decode(&proof); err != nil {
		sendBadRequest(w, fmt.Sprintf("bad mining proof body: %v", err))
		return
	}
	accepted, err := t.api.SubmitMiningProof(proof)
	if err != nil {
		sendError(w, "submitMiningProof", err)
		return
	}
	sendResponse(w, map[string]any{"accepted": accepted})
}

func (t WebAPI) getUTXO(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	txID := p.ByName("txid")
	if txID == "" {
		sendBadRequest(w, "missing txid in URL")
		return
	}
	vOut, err := strconv.Atoi(p.ByName("vout"))
	if err != nil {
		sendBadRequest(w, fmt.Sprintf("bad vout in URL: %v", err))
		return
	}
	utxo, err := t.api.GetUTXO(txID, vOut)
	if err != nil {
		sendError(w, "getUTXO", err)
		return
	}
	sendResponse(w, utxo)
}

func (t WebAPI) getDifficulty(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	bits, target, err := t.api.GetDifficulty()
	if err != nil {
		sendError(w, "getDifficulty", err)
		return
	}
	sendResponse(w, map[string]any{
		"bits":   fmt.Sprintf("%08x", bits),
		"target": target.String(),
	})
}

func (t WebAPI) getBlockReward(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	height, err := strconv.ParseInt(p.ByName("height"), 10, 64)
	if err != nil || height < 0 {
		sendBadRequest(w, fmt.Sprintf("bad height in URL: %s", p.ByName("height")))
		return
	}
	sendResponse(w, map[string]any{
		"height":  height,
		"subsidy": t.api.GetBlockReward(height),
	})
}

func (t WebAPI) getChainPosition(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	pos, err := t.api.GetChainPosition()
	if err != nil {
		sendError(w, "getChainPosition", err)
		return
	}
	sendResponse(w, pos)
}

func (t WebAPI) advancePosition(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var pos zledger.ChainPosition
	if err := json.NewDecoder(r.Body).Decode(&pos); err != nil {
		sendBadRequest(w, fmt.Sprintf("bad position body: %v", err))
		return
	}
	if err := t.api.AdvancePosition(pos); err != nil {
		sendError(w, "advancePosition", err)
		return
	}
	sendResponse(w, map[string]any{"status": "ok"})
}
