package balances

import "xdao.co/poe/chain"

// TransferCall moves Amount from the calling account to To.
type TransferCall struct {
	To     chain.AccountID
	Amount chain.Balance
}

func (TransferCall) Module() string { return "balances" }
func (TransferCall) Method() string { return "transfer" }
