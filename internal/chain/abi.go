package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// wagersABI is the interface of the deployed wagers contract: the fragment
// of the full ABI that wagerd reads and writes.
const wagersABI = `[
  {
    "type": "function", "name": "marketCount", "stateMutability": "view",
    "inputs": [],
    "outputs": [{"name": "", "type": "uint256"}]
  },
  {
    "type": "function", "name": "getMarketInfo", "stateMutability": "view",
    "inputs": [{"name": "_marketId", "type": "uint256"}],
    "outputs": [
      {"name": "question", "type": "string"},
      {"name": "optionA", "type": "string"},
      {"name": "optionB", "type": "string"},
      {"name": "endTime", "type": "uint256"},
      {"name": "outcome", "type": "uint8"},
      {"name": "totalOptionAShares", "type": "uint256"},
      {"name": "totalOptionBShares", "type": "uint256"},
      {"name": "resolved", "type": "bool"}
    ]
  },
  {
    "type": "function", "name": "getSharesBalance", "stateMutability": "view",
    "inputs": [
      {"name": "_marketId", "type": "uint256"},
      {"name": "_user", "type": "address"}
    ],
    "outputs": [
      {"name": "optionAShares", "type": "uint256"},
      {"name": "optionBShares", "type": "uint256"}
    ]
  },
  {
    "type": "function", "name": "createMarket", "stateMutability": "nonpayable",
    "inputs": [
      {"name": "_question", "type": "string"},
      {"name": "_optionA", "type": "string"},
      {"name": "_optionB", "type": "string"},
      {"name": "_duration", "type": "uint256"}
    ],
    "outputs": [{"name": "", "type": "uint256"}]
  },
  {
    "type": "function", "name": "buyShares", "stateMutability": "payable",
    "inputs": [
      {"name": "_marketId", "type": "uint256"},
      {"name": "_isOptionA", "type": "bool"}
    ],
    "outputs": []
  },
  {
    "type": "function", "name": "resolveMarket", "stateMutability": "nonpayable",
    "inputs": [
      {"name": "_marketId", "type": "uint256"},
      {"name": "_outcome", "type": "uint8"}
    ],
    "outputs": []
  },
  {
    "type": "function", "name": "claimWinnings", "stateMutability": "nonpayable",
    "inputs": [{"name": "_marketId", "type": "uint256"}],
    "outputs": []
  }
]`

// parseABI panics on a malformed ABI constant; the constant is fixed at
// compile time so a panic here is a programming error, not a runtime one.
func parseABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(wagersABI))
	if err != nil {
		panic("chain: parsing wagers ABI: " + err.Error())
	}
	return parsed
}
