package service

import (
	"fmt"
	"strconv"
	"strings"

	"hermes/domain/orderbook"
)

// WAL payloads are pipe-separated fields. Identifier fields are validated
// free of the separator at admission.

func encodeSubmit(id string, seq uint64, symbol, client string, side orderbook.Side, price, qty int64) []byte {
	return []byte(fmt.Sprintf("%s|%d|%s|%s|%d|%d|%d", id, seq, symbol, client, side, price, qty))
}

type submitCmd struct {
	ID     string
	Seq    uint64
	Symbol string
	Client string
	Side   orderbook.Side
	Price  int64
	Qty    int64
}

func decodeSubmit(data []byte) (submitCmd, error) {
	parts := strings.Split(string(data), "|")
	if len(parts) != 7 {
		return submitCmd{}, fmt.Errorf("wal: bad submit payload %q", data)
	}
	seq, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return submitCmd{}, err
	}
	side, err := strconv.ParseUint(parts[4], 10, 8)
	if err != nil {
		return submitCmd{}, err
	}
	price, err := strconv.ParseInt(parts[5], 10, 64)
	if err != nil {
		return submitCmd{}, err
	}
	qty, err := strconv.ParseInt(parts[6], 10, 64)
	if err != nil {
		return submitCmd{}, err
	}
	return submitCmd{
		ID:     parts[0],
		Seq:    seq,
		Symbol: parts[2],
		Client: parts[3],
		Side:   orderbook.Side(side),
		Price:  price,
		Qty:    qty,
	}, nil
}

func encodeCancel(id string) []byte {
	return []byte(id)
}

func encodeModify(id string, seq uint64, price, qty int64) []byte {
	return []byte(fmt.Sprintf("%s|%d|%d|%d", id, seq, price, qty))
}

type modifyCmd struct {
	ID    string
	Seq   uint64
	Price int64
	Qty   int64
}

func decodeModify(data []byte) (modifyCmd, error) {
	parts := strings.Split(string(data), "|")
	if len(parts) != 4 {
		return modifyCmd{}, fmt.Errorf("wal: bad modify payload %q", data)
	}
	seq, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return modifyCmd{}, err
	}
	price, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return modifyCmd{}, err
	}
	qty, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return modifyCmd{}, err
	}
	return modifyCmd{ID: parts[0], Seq: seq, Price: price, Qty: qty}, nil
}
