package testutil

import (
	"github.com/roach88/dajeum/internal/ir"
)

// Addresses used across tests.
const (
	Deployer = "deployer"
	User     = "0xUser"
	Other    = "0xOther"
)

// RegisterArgs builds Identity.registerName arguments.
func RegisterArgs(name string, year, month, day int64, gender string) ir.Object {
	return ir.Object{
		"full_name":   ir.String(name),
		"birth_year":  ir.Int(year),
		"birth_month": ir.Int(month),
		"birth_day":   ir.Int(day),
		"gender":      ir.String(gender),
	}
}

// ExampleRegisterArgs registers 김민준, born 2020-05-15.
func ExampleRegisterArgs() ir.Object {
	return RegisterArgs("김민준", 2020, 5, 15, "남")
}

// BatchArgs builds Identity.batchRegisterNames arguments from parallel
// slices.
func BatchArgs(names []string, years, months, days []int64, genders []string) ir.Object {
	return ir.Object{
		"names":   ir.Strings(names),
		"years":   ir.Ints(years),
		"months":  ir.Ints(months),
		"days":    ir.Ints(days),
		"genders": ir.Strings(genders),
	}
}

// MintArgs builds Certificate.mintCertificate arguments.
func MintArgs(owner string, nameID int64, tokenURI, imageURI string) ir.Object {
	return ir.Object{
		"owner":     ir.String(owner),
		"name_id":   ir.Int(nameID),
		"token_uri": ir.String(tokenURI),
		"image_uri": ir.String(imageURI),
	}
}

// TransferArgs builds Token.transfer arguments debiting the caller.
func TransferArgs(to string, amount int64) ir.Object {
	return ir.Object{
		"to":     ir.String(to),
		"amount": ir.Int(amount),
	}
}

// TransferFromArgs builds Token.transfer arguments debiting from, which the
// caller must be approved for.
func TransferFromArgs(from, to string, amount int64) ir.Object {
	args := TransferArgs(to, amount)
	args["from"] = ir.String(from)
	return args
}

// ApproveArgs builds Token.approve arguments.
func ApproveArgs(spender string, amount int64) ir.Object {
	return ir.Object{
		"spender": ir.String(spender),
		"amount":  ir.Int(amount),
	}
}

// PriceArgs builds Token.setServicePrice arguments.
func PriceArgs(service string, price int64) ir.Object {
	return ir.Object{
		"service_name": ir.String(service),
		"price":        ir.Int(price),
	}
}

// PayArgs builds Token.payForService arguments.
func PayArgs(service string) ir.Object {
	return ir.Object{"service_name": ir.String(service)}
}
